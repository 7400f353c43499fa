package givmodbus

// Canonical slave addresses. The primary inverter sits at 0x32; LV
// batteries occupy 0x32+i; HV battery modules occupy 0x50+i; the HV
// battery control unit sits at 0x70. Addresses 0x00 and 0x11 are used by
// the mobile app / cloud portal and are rewritten to the plant's
// canonical slave address on update.
const (
	DefaultSlaveAddress byte = 0x32
	hvBatteryBase       byte = 0x50
	hvbcuAddress        byte = 0x70
)

// Plant aggregates the per-slave register caches that make up one
// physical installation: an inverter/EMS/gateway plus zero or more
// battery packs.
type Plant struct {
	RegisterCaches              map[byte]RegisterCache
	AdditionalHoldingRegisters  []uint16
	AdditionalInputRegisters    []uint16
	InverterSerialNumber        string
	DataAdapterSerialNumber     string
	NumberBatteries             int
	SlaveAddress                byte
	IsHV                        bool
}

// NewPlant returns an empty Plant with a single register cache at the
// default (or overridden) slave address.
func NewPlant(slaveAddress byte) *Plant {
	if slaveAddress == 0 {
		slaveAddress = DefaultSlaveAddress
	}
	return &Plant{
		RegisterCaches: map[byte]RegisterCache{slaveAddress: NewRegisterCache()},
		SlaveAddress:   slaveAddress,
	}
}

func (p *Plant) cacheFor(addr byte) RegisterCache {
	c, ok := p.RegisterCaches[addr]
	if !ok {
		c = NewRegisterCache()
		p.RegisterCaches[addr] = c
	}
	return c
}

// Update folds a decoded transparent response into the plant's register
// caches. Non-transparent messages, the unsolicited null keep-alive, and
// error responses are ignored. A WriteHoldingRegisterResponse reporting
// register 0 is dropped as likely corrupt, matching the original
// implementation's defensive check.
func (p *Plant) Update(m *TransparentMessage) {
	if m == nil || m.IsNull() || m.Error {
		return
	}

	addr := m.SlaveAddress
	if addr == 0x11 || addr == 0x00 {
		addr = p.SlaveAddress
	}

	p.InverterSerialNumber = m.InverterSerialNumber
	p.DataAdapterSerialNumber = m.DataAdapterSerialNumber

	switch {
	case m.TransparentFunctionCode == TFCReadHolding || m.TransparentFunctionCode == TFCReadInput || m.TransparentFunctionCode == TFCReadBattery:
		p.cacheFor(addr).Update(m.Enumerate())
	case m.IsWriteHoldingRegister():
		if m.Register() == 0 {
			return
		}
		p.cacheFor(addr).Update(map[Register]uint16{HR(int(m.Register())): m.Value()})
	}
}

// Inverter returns the typed projection matching the detected device
// family at the plant's canonical slave address.
func (p *Plant) Inverter() *Inverter {
	cache := p.cacheFor(p.SlaveAddress)
	hr0, ok := cache.Get(HR(0))
	if !ok {
		return NewInverter(cache, nil)
	}
	switch DetectModel(hr0) {
	case ModelEMS:
		return NewEms(cache).Inverter
	case ModelThreePhase:
		return NewThreePhase(cache).Inverter
	case ModelGateway:
		return NewGateway(cache).Inverter
	default:
		return NewInverter(cache, nil)
	}
}

// DetectBatteries determines NumberBatteries by probing consecutive
// battery-pack slave addresses until one fails to validate, following the
// original's detect_batteries: EMS and Gateway installs never have
// directly-addressed battery packs.
func (p *Plant) DetectBatteries() {
	model := p.Inverter().Model()
	if model == ModelEMS || model == ModelGateway {
		p.NumberBatteries = 0
		return
	}
	n := 0
	for i := byte(0); i < 6; i++ {
		var valid bool
		if p.IsHV {
			cache, ok := p.RegisterCaches[hvBatteryBase+i]
			valid = ok && NewHVBattery(cache).IsValid()
		} else {
			cache, ok := p.RegisterCaches[DefaultSlaveAddress+i]
			valid = ok && NewBattery(cache).IsValid()
		}
		if !valid {
			break
		}
		n++
	}
	p.NumberBatteries = n
}

// Batteries returns the typed battery-pack projections, LV or HV
// depending on IsHV.
func (p *Plant) Batteries() []*Inverter {
	out := make([]*Inverter, 0, p.NumberBatteries)
	for i := 0; i < p.NumberBatteries; i++ {
		if p.IsHV {
			out = append(out, NewHVBattery(p.cacheFor(hvBatteryBase+byte(i))).Inverter)
		} else {
			out = append(out, NewBattery(p.cacheFor(DefaultSlaveAddress+byte(i))).Inverter)
		}
	}
	return out
}

// BCU returns the HV battery control unit projection, if this plant has
// any HV battery modules registered.
func (p *Plant) BCU() *HVBCU {
	if _, ok := p.RegisterCaches[hvBatteryBase]; !ok {
		return nil
	}
	return NewHVBCU(p.cacheFor(hvbcuAddress))
}
