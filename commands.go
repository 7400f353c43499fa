package givmodbus

import "fmt"

// Commands composes high-level plant operations into ordered sequences
// of transparent register requests, grounded on the original
// implementation's Commands class. It holds no network state: callers
// pass the resulting messages to Client.Execute or
// SendRequestAndAwaitResponse.
type Commands struct {
	SlaveAddress byte
	LUT          RegisterLUT
}

// NewCommands returns a composer targeting slaveAddress, using
// InverterLUT unless lut is given.
func NewCommands(slaveAddress byte, lut RegisterLUT) *Commands {
	if lut == nil {
		lut = InverterLUT
	}
	return &Commands{SlaveAddress: slaveAddress, LUT: lut}
}

// WriteNamedRegister validates value against name's writable range and
// builds the single-register write request for it.
func (c *Commands) WriteNamedRegister(name string, value int) (*TransparentMessage, error) {
	reg, raw, err := c.LUT.ResolveWrite(name, value)
	if err != nil {
		return nil, err
	}
	return NewWriteHoldingRegisterRequest(c.SlaveAddress, reg.Index, raw), nil
}

func (c *Commands) writeSeq(pairs ...struct {
	name  string
	value int
}) ([]*TransparentMessage, error) {
	msgs := make([]*TransparentMessage, 0, len(pairs))
	for _, p := range pairs {
		m, err := c.WriteNamedRegister(p.name, p.value)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// SetEnableCharge turns the inverter's charge-from-grid function on or off.
func (c *Commands) SetEnableCharge(enable bool) (*TransparentMessage, error) {
	v := 0
	if enable {
		v = 1
	}
	return c.WriteNamedRegister("enable_charge", v)
}

// EnableCharge turns on the inverter's charge-from-grid function.
func (c *Commands) EnableCharge() (*TransparentMessage, error) {
	return c.SetEnableCharge(true)
}

// DisableChargeTarget turns off the "stop charging at target SOC"
// behavior, leaving the inverter charging indefinitely.
func (c *Commands) DisableChargeTarget() (*TransparentMessage, error) {
	return c.WriteNamedRegister("enable_charge_target", 0)
}

// EnableChargeTarget turns on the "stop charging at target SOC" behavior.
func (c *Commands) EnableChargeTarget() (*TransparentMessage, error) {
	return c.WriteNamedRegister("enable_charge_target", 1)
}

// SetChargeTarget enables charging and sets the target state of charge,
// in percent. A target of 100 disables the target-SOC behavior instead
// of enabling it, since charging to 100% is equivalent to charging
// indefinitely. Valid values are 4-100 inclusive; anything else returns
// ErrOutOfRange.
func (c *Commands) SetChargeTarget(limit int) ([]*TransparentMessage, error) {
	var msgs []*TransparentMessage

	m, err := c.EnableCharge()
	if err != nil {
		return nil, err
	}
	msgs = append(msgs, m)

	target := 1
	if limit == 100 {
		target = 0
	}
	m, err = c.WriteNamedRegister("enable_charge_target", target)
	if err != nil {
		return nil, err
	}
	msgs = append(msgs, m)

	m, err = c.WriteNamedRegister("charge_target_soc", limit)
	if err != nil {
		return nil, fmt.Errorf("givmodbus: %w", err)
	}
	msgs = append(msgs, m)

	return msgs, nil
}

// SetDischargeModeToMatchDemand puts the inverter into demand-following
// discharge mode (as opposed to max-power export).
func (c *Commands) SetDischargeModeToMatchDemand() (*TransparentMessage, error) {
	return c.WriteNamedRegister("discharge_mode", 1)
}

// SetDischargeModeMaxPower puts the inverter into max-power export
// discharge mode, the counterpart to SetDischargeModeToMatchDemand.
func (c *Commands) SetDischargeModeMaxPower() (*TransparentMessage, error) {
	return c.WriteNamedRegister("discharge_mode", 0)
}

// SetBatterySocReserve sets the minimum state of charge the battery will
// not discharge below.
func (c *Commands) SetBatterySocReserve(percent int) (*TransparentMessage, error) {
	return c.WriteNamedRegister("battery_soc_reserve", percent)
}

// SetBatteryChargeLimit caps the charge power as a percentage of the
// battery's rated power.
func (c *Commands) SetBatteryChargeLimit(percent int) (*TransparentMessage, error) {
	return c.WriteNamedRegister("battery_charge_limit", percent)
}

// SetBatteryDischargeLimit caps the discharge power as a percentage of
// the battery's rated power.
func (c *Commands) SetBatteryDischargeLimit(percent int) (*TransparentMessage, error) {
	return c.WriteNamedRegister("battery_discharge_limit", percent)
}

// SetBatteryPowerReserve sets the minimum state of charge the battery
// will hold back from discharge even under max-power-export mode,
// distinct from SetBatterySocReserve's demand-following reserve.
func (c *Commands) SetBatteryPowerReserve(percent int) (*TransparentMessage, error) {
	return c.WriteNamedRegister("battery_discharge_min_power_reserve", percent)
}

// SetBatteryPauseMode selects whether charge, discharge, both, or
// neither are paused, per battery_pause_mode's enumerated values.
func (c *Commands) SetBatteryPauseMode(mode int) (*TransparentMessage, error) {
	return c.WriteNamedRegister("battery_pause_mode", mode)
}

// SetEnableDischarge turns battery discharge on or off.
func (c *Commands) SetEnableDischarge(enable bool) (*TransparentMessage, error) {
	v := 0
	if enable {
		v = 1
	}
	return c.WriteNamedRegister("enable_discharge", v)
}

// setDischargeSlot writes (or, if slot is nil, resets to 0/0) discharge
// slot idx (1 or 2).
func (c *Commands) setDischargeSlot(idx int, slot *TimeSlot) ([]*TransparentMessage, error) {
	start, end := 0, 0
	if slot != nil {
		start = int(slot.Start.hhmm())
		end = int(slot.End.hhmm())
	}
	startName := fmt.Sprintf("discharge_slot_%d_start", idx)
	endName := fmt.Sprintf("discharge_slot_%d_end", idx)
	return c.writeSeq(
		struct {
			name  string
			value int
		}{startName, start},
		struct {
			name  string
			value int
		}{endName, end},
	)
}

// SetDischargeSlot1 sets (or, if slot is nil, resets) the first discharge
// window.
func (c *Commands) SetDischargeSlot1(slot *TimeSlot) ([]*TransparentMessage, error) {
	return c.setDischargeSlot(1, slot)
}

// SetDischargeSlot2 sets (or, if slot is nil, resets) the second
// discharge window.
func (c *Commands) SetDischargeSlot2(slot *TimeSlot) ([]*TransparentMessage, error) {
	return c.setDischargeSlot(2, slot)
}

// ResetDischargeSlot1 clears the first discharge window.
func (c *Commands) ResetDischargeSlot1() ([]*TransparentMessage, error) {
	return c.setDischargeSlot(1, nil)
}

// ResetDischargeSlot2 clears the second discharge window.
func (c *Commands) ResetDischargeSlot2() ([]*TransparentMessage, error) {
	return c.setDischargeSlot(2, nil)
}

// setChargeSlot writes (or, if slot is nil, resets to 0/0) charge slot
// idx (1 or 2), mirroring setDischargeSlot for the charge-side windows.
func (c *Commands) setChargeSlot(idx int, slot *TimeSlot) ([]*TransparentMessage, error) {
	start, end := 0, 0
	if slot != nil {
		start = int(slot.Start.hhmm())
		end = int(slot.End.hhmm())
	}
	startName := fmt.Sprintf("charge_slot_%d_start", idx)
	endName := fmt.Sprintf("charge_slot_%d_end", idx)
	return c.writeSeq(
		struct {
			name  string
			value int
		}{startName, start},
		struct {
			name  string
			value int
		}{endName, end},
	)
}

// SetChargeSlot1 sets (or, if slot is nil, resets) the first charge window.
func (c *Commands) SetChargeSlot1(slot *TimeSlot) ([]*TransparentMessage, error) {
	return c.setChargeSlot(1, slot)
}

// SetChargeSlot2 sets (or, if slot is nil, resets) the second charge window.
func (c *Commands) SetChargeSlot2(slot *TimeSlot) ([]*TransparentMessage, error) {
	return c.setChargeSlot(2, slot)
}

// ResetChargeSlot1 clears the first charge window.
func (c *Commands) ResetChargeSlot1() ([]*TransparentMessage, error) {
	return c.setChargeSlot(1, nil)
}

// ResetChargeSlot2 clears the second charge window.
func (c *Commands) ResetChargeSlot2() ([]*TransparentMessage, error) {
	return c.setChargeSlot(2, nil)
}

// SetModeDynamic returns the inverter to its default, schedule-free mode:
// no charge target and no forced discharge window, letting the device's
// own ECO logic drive charge/discharge decisions.
func (c *Commands) SetModeDynamic() ([]*TransparentMessage, error) {
	var msgs []*TransparentMessage

	m, err := c.WriteNamedRegister("enable_charge_target", 0)
	if err != nil {
		return nil, err
	}
	msgs = append(msgs, m)

	m, err = c.SetEnableDischarge(false)
	if err != nil {
		return nil, err
	}
	msgs = append(msgs, m)

	return msgs, nil
}

// SetInverterReboot writes the magic value that triggers an inverter
// reboot. The device itself ignores any value other than the documented
// trigger, hence the fixed range on inverter_reboot in InverterLUT.
func (c *Commands) SetInverterReboot() (*TransparentMessage, error) {
	return c.WriteNamedRegister("inverter_reboot", 100)
}

// SetModeStorage configures the inverter for "storage" mode: discharge
// only to match household demand (or, if dischargeForExport is true, at
// max power regardless of demand), with a full (100%) reserve, plus the
// given discharge windows. A nil slot resets that window rather than
// leaving it untouched, matching the original implementation's
// all-or-nothing slot semantics. dischargeForExport mirrors the
// original's branch between set_discharge_mode_max_power() and
// set_discharge_mode_to_match_demand().
func (c *Commands) SetModeStorage(dischargeSlot1, dischargeSlot2 *TimeSlot, dischargeForExport bool) ([]*TransparentMessage, error) {
	var msgs []*TransparentMessage

	var m *TransparentMessage
	var err error
	if dischargeForExport {
		m, err = c.SetDischargeModeMaxPower()
	} else {
		m, err = c.SetDischargeModeToMatchDemand()
	}
	if err != nil {
		return nil, err
	}
	msgs = append(msgs, m)

	m, err = c.SetBatterySocReserve(100)
	if err != nil {
		return nil, err
	}
	msgs = append(msgs, m)

	m, err = c.SetEnableDischarge(true)
	if err != nil {
		return nil, err
	}
	msgs = append(msgs, m)

	slot1msgs, err := c.setDischargeSlot(1, dischargeSlot1)
	if err != nil {
		return nil, err
	}
	msgs = append(msgs, slot1msgs...)

	slot2msgs, err := c.setDischargeSlot(2, dischargeSlot2)
	if err != nil {
		return nil, err
	}
	msgs = append(msgs, slot2msgs...)

	return msgs, nil
}

// SetSystemDateTime returns six independent register writes for the
// device's onboard clock, in year, month, day, hour, minute, second order.
// That order is only the order of the returned slice: Client.Execute
// dispatches the writes concurrently, so if they straddle a minute
// boundary on the device the written clock can be skewed by one minute
// (see DESIGN.md).
func (c *Commands) SetSystemDateTime(dt DateTime) ([]*TransparentMessage, error) {
	return c.writeSeq(
		struct {
			name  string
			value int
		}{"system_time_year", dt.Year - 2000},
		struct {
			name  string
			value int
		}{"system_time_month", dt.Month},
		struct {
			name  string
			value int
		}{"system_time_day", dt.Day},
		struct {
			name  string
			value int
		}{"system_time_hour", dt.Hour},
		struct {
			name  string
			value int
		}{"system_time_minute", dt.Minute},
		struct {
			name  string
			value int
		}{"system_time_second", dt.Second},
	)
}

// RefreshPlantData builds the ordered list of read requests used to
// populate (or re-populate) a Plant's register caches, grounded on the
// original implementation's refresh_plant_data. A partial refresh reads
// only the input-register blocks needed for live telemetry; a complete
// refresh adds the holding-register blocks (settings) and raises
// numberBatteries to maxBatteries so every configured battery slot gets
// its own read.
func (c *Commands) RefreshPlantData(complete bool, numberBatteries, maxBatteries int) []*TransparentMessage {
	var reqs []*TransparentMessage

	reqs = append(reqs,
		NewReadInputRegistersRequest(DefaultSlaveAddress, 0, 60),
		NewReadInputRegistersRequest(DefaultSlaveAddress, 180, 60),
	)

	if complete {
		reqs = append(reqs,
			NewReadHoldingRegistersRequest(DefaultSlaveAddress, 0, 60),
			NewReadHoldingRegistersRequest(DefaultSlaveAddress, 60, 60),
			NewReadHoldingRegistersRequest(DefaultSlaveAddress, 120, 60),
			NewReadInputRegistersRequest(DefaultSlaveAddress, 120, 60),
		)
		numberBatteries = maxBatteries
	}

	for i := 0; i < numberBatteries; i++ {
		reqs = append(reqs, NewReadInputRegistersRequest(DefaultSlaveAddress+byte(i), 60, 60))
	}

	return reqs
}
