package sma_modbus

import "sync"

func CreateTestBatteryDevice() *TestBatteryDevice {
	return &TestBatteryDevice{
		Telemetry: BatteryTelemetry{
			StateOfChargePct: ReadingOf(67),
			CapacityWh:       ReadingOf(10240),
			BatteryPowerW:    ReadingOf(-820),
			GridPowerW:       ReadingOf(150),
			GridExportWh:     ReadingOf(4471020),
			ChargeAllowed:    true,
			DischargeAllowed: true,
		},
	}
}

func CreateTestPVReader() *TestPVReader {
	return &TestPVReader{
		Telemetry: PVTelemetry{PowerW: ReadingOf(3120)},
	}
}

// ControlOp records one control call made against a test battery device.
type ControlOp struct {
	Op    string
	Watts uint32
}

// TestBatteryDevice is an in-memory BatteryDevice for actor and cycle
// tests. Errors are injected per call site; control calls are recorded.
type TestBatteryDevice struct {
	mu sync.Mutex

	Telemetry  BatteryTelemetry
	OpenError  error
	ReadError  error
	WriteError error

	ControlOps []ControlOp
}

func (d *TestBatteryDevice) Open() error {
	return d.OpenError
}

func (d *TestBatteryDevice) Close() error {
	return nil
}

func (d *TestBatteryDevice) ReadTelemetry() (*BatteryTelemetry, error) {
	if d.ReadError != nil {
		return nil, d.ReadError
	}
	t := d.Telemetry
	return &t, nil
}

func (d *TestBatteryDevice) SetAutoMode() error {
	return d.record("auto", 0)
}

func (d *TestBatteryDevice) SetChargeWatts(watts uint32) error {
	return d.record("charge", watts)
}

func (d *TestBatteryDevice) SetDischargeWatts(watts uint32) error {
	return d.record("discharge", watts)
}

func (d *TestBatteryDevice) record(op string, watts uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ControlOps = append(d.ControlOps, ControlOp{Op: op, Watts: watts})
	return d.WriteError
}

func (d *TestBatteryDevice) RecordedOps() []ControlOp {
	d.mu.Lock()
	defer d.mu.Unlock()
	ops := make([]ControlOp, len(d.ControlOps))
	copy(ops, d.ControlOps)
	return ops
}

// TestPVReader is an in-memory PVReader for tests.
type TestPVReader struct {
	Telemetry PVTelemetry
	OpenError error
	ReadError error
}

func (r *TestPVReader) Open() error {
	return r.OpenError
}

func (r *TestPVReader) Close() error {
	return nil
}

func (r *TestPVReader) ReadTelemetry() (*PVTelemetry, error) {
	if r.ReadError != nil {
		return nil, r.ReadError
	}
	t := r.Telemetry
	return &t, nil
}
