package givmodbus

// Model identifies the broad device family, detected from the first hex
// digit of HR(0).
type Model int

const (
	ModelUnknown Model = iota
	ModelSinglePhaseHybrid
	ModelThreePhase
	ModelEMS
	ModelGateway
	ModelAllInOne
)

func (m Model) String() string {
	switch m {
	case ModelSinglePhaseHybrid:
		return "single-phase hybrid/AC"
	case ModelThreePhase:
		return "three-phase"
	case ModelEMS:
		return "EMS"
	case ModelGateway:
		return "gateway"
	case ModelAllInOne:
		return "all-in-one"
	default:
		return "unknown"
	}
}

// DetectModel inspects the high nibble of HR(0) and returns the device
// family it implies, following the original implementation's dispatch:
// 2/3 -> single-phase hybrid/AC, 4/6 -> three-phase, 5 -> EMS,
// 7 -> gateway, 8 -> all-in-one.
func DetectModel(hr0 uint16) Model {
	switch hr0 >> 12 {
	case 2, 3:
		return ModelSinglePhaseHybrid
	case 4, 6:
		return ModelThreePhase
	case 5:
		return ModelEMS
	case 7:
		return ModelGateway
	case 8:
		return ModelAllInOne
	default:
		return ModelUnknown
	}
}

// InverterLUT is the core register table for the common inverter family,
// grounded on the original implementation's Inverter.REGISTER_LUT. It
// covers the attributes the command composer and testable properties
// exercise; a full device carries several hundred more entries, which an
// implementer adds here or supplies via LoadRegisterLUT.
var InverterLUT = RegisterLUT{
	"device_type_code": {Registers: []Register{HR(0)}, PreConv: HexConv},

	"inverter_serial_number": {Registers: []Register{HR(13), HR(14), HR(15), HR(16), HR(17)}, PreConv: StringConv},
	"inverter_firmware_version": {Registers: []Register{HR(2)}, PreConv: FirmwareVersionConv},

	"system_time_year":   {Registers: []Register{HR(35)}, Valid: &[2]int{0, 99}},
	"system_time_month":  {Registers: []Register{HR(36)}, Valid: &[2]int{1, 12}},
	"system_time_day":    {Registers: []Register{HR(37)}, Valid: &[2]int{1, 31}},
	"system_time_hour":   {Registers: []Register{HR(38)}, Valid: &[2]int{0, 23}},
	"system_time_minute": {Registers: []Register{HR(39)}, Valid: &[2]int{0, 59}},
	"system_time_second": {Registers: []Register{HR(40)}, Valid: &[2]int{0, 59}},
	"system_date_time":   {Registers: []Register{HR(35), HR(36), HR(37), HR(38), HR(39), HR(40)}, PreConv: DateTimeConv},

	"enable_charge":        {Registers: []Register{HR(96)}, Valid: &[2]int{0, 1}},
	"enable_charge_target":  {Registers: []Register{HR(20)}, Valid: &[2]int{0, 1}},
	"charge_target_soc":     {Registers: []Register{HR(116)}, Valid: &[2]int{4, 100}},

	"discharge_mode":             {Registers: []Register{HR(27)}, Valid: &[2]int{0, 1}},
	"battery_soc_reserve":        {Registers: []Register{HR(110)}, Valid: &[2]int{4, 100}},
	"enable_discharge":           {Registers: []Register{HR(59)}, Valid: &[2]int{0, 1}},

	"discharge_slot_1_start": {Registers: []Register{HR(56)}, Valid: &[2]int{0, 2359}},
	"discharge_slot_1_end":   {Registers: []Register{HR(57)}, Valid: &[2]int{0, 2359}},
	"discharge_slot_2_start": {Registers: []Register{HR(44)}, Valid: &[2]int{0, 2359}},
	"discharge_slot_2_end":   {Registers: []Register{HR(45)}, Valid: &[2]int{0, 2359}},

	"charge_slot_1_start": {Registers: []Register{HR(10)}, Valid: &[2]int{0, 2359}},
	"charge_slot_1_end":   {Registers: []Register{HR(11)}, Valid: &[2]int{0, 2359}},
	"charge_slot_2_start": {Registers: []Register{HR(68)}, Valid: &[2]int{0, 2359}},
	"charge_slot_2_end":   {Registers: []Register{HR(69)}, Valid: &[2]int{0, 2359}},

	"battery_power_mode":  {Registers: []Register{HR(72)}, Valid: &[2]int{0, 1}},
	"battery_soc_protect": {Registers: []Register{HR(134)}, Valid: &[2]int{4, 100}},

	"battery_charge_limit":                {Registers: []Register{HR(83)}, Valid: &[2]int{0, 50}},
	"battery_discharge_limit":             {Registers: []Register{HR(85)}, Valid: &[2]int{0, 50}},
	"battery_discharge_min_power_reserve":  {Registers: []Register{HR(66)}, Valid: &[2]int{4, 100}},
	// battery_pause_mode doubles as the enum-post-conv example: the raw
	// code is still what gets validated/written, the label is read-only.
	"battery_pause_mode": {
		Registers: []Register{HR(31)},
		PostConv: EnumPostConv(map[int64]string{
			0: "disabled",
			1: "pause_charge",
			2: "pause_discharge",
			3: "pause_both",
		}, "unknown"),
		Valid: &[2]int{0, 3},
	},
	"inverter_reboot": {Registers: []Register{HR(163)}, Valid: &[2]int{100, 100}},

	// adapter_type_high/low splits one word into its two bytes via
	// DUint8Conv, the high/low-byte-select converter.
	"adapter_type_high": {Registers: []Register{HR(1)}, PreConv: DUint8Conv(0)},
	"adapter_type_low":  {Registers: []Register{HR(1)}, PreConv: DUint8Conv(1)},

	"v_pv1":          {Registers: []Register{IR(2)}, PreConv: DeciConv},
	"v_pv2":          {Registers: []Register{IR(3)}, PreConv: DeciConv},
	"soc":            {Registers: []Register{IR(180)}, PreConv: Uint16Conv},
	"p_inverter_out": {Registers: []Register{IR(14)}, PreConv: Int16Conv},

	// battery_status_code is the bitfield-conv example: low nibble of a
	// status word.
	"battery_status_code": {Registers: []Register{IR(30)}, PreConv: BitfieldConv(0, 3)},

	// e_inverter_out_total is the uint32-conv + format-conv example: two
	// words combined into a 32-bit total, then rendered as a display string.
	"e_inverter_out_total": {
		Registers: []Register{IR(45), IR(46)},
		PreConv:   Uint32Conv,
		PostConv:  FormatPostConv("%d Wh"),
	},
}

// Inverter is a typed, read-only view over a single slave's register
// cache, backed by InverterLUT.
type Inverter struct {
	cache RegisterCache
	lut   RegisterLUT
}

// NewInverter wraps cache using lut (InverterLUT if lut is nil).
func NewInverter(cache RegisterCache, lut RegisterLUT) *Inverter {
	if lut == nil {
		lut = InverterLUT
	}
	return &Inverter{cache: cache, lut: lut}
}

// Get resolves a named attribute against the wrapped cache. ok is false
// when the backing register(s) haven't been read from the device yet;
// that is not an error.
func (i *Inverter) Get(name string) (val interface{}, ok bool, err error) {
	return i.lut.Get(i.cache, name)
}

// Model returns the detected device family, or ModelUnknown if HR(0)
// has not yet been read.
func (i *Inverter) Model() Model {
	hr0, ok := i.cache.Get(HR(0))
	if !ok {
		return ModelUnknown
	}
	return DetectModel(hr0)
}
