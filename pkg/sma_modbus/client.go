package sma_modbus

import (
	"fmt"
	"time"

	"github.com/simonvetter/modbus"
)

// ModbusClient adapts a simonvetter TCP client to the RegisterBus view and
// times every device call through the attached instruments.
type ModbusClient struct {
	client     *modbus.ModbusClient
	instrument []ModbusInstrument
}

type ModbusInstrument struct {
	RecordTime func(fnName string, readTime time.Duration)
}

func newModbusClient(host string, port uint, unitID uint8, timeout time.Duration, instrument []ModbusInstrument) (ModbusClient, error) {
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     fmt.Sprintf("tcp://%s:%d", host, port),
		Timeout: timeout,
	})
	if err != nil {
		return ModbusClient{}, err
	}
	if err = client.SetUnitId(unitID); err != nil {
		return ModbusClient{}, err
	}
	return ModbusClient{client: client, instrument: instrument}, nil
}

func (c ModbusClient) Open() error {
	return c.client.Open()
}

func (c ModbusClient) Close() error {
	return c.client.Close()
}

func (c ModbusClient) ReadRegisters(addr uint16, quantity uint16, kind RegisterKind) ([]uint16, error) {
	defer RecordTimer("ReadRegisters", c.instrument)()
	return c.client.ReadRegisters(addr, quantity, regType(kind))
}

func (c ModbusClient) WriteRegisters(addr uint16, values []uint16) error {
	defer RecordTimer("WriteRegisters", c.instrument)()
	return c.client.WriteRegisters(addr, values)
}

func regType(kind RegisterKind) modbus.RegType {
	if kind == RegisterKindInput {
		return modbus.INPUT_REGISTER
	}
	return modbus.HOLDING_REGISTER
}

func RecordTimer(name string, instrument []ModbusInstrument) func() {
	if instrument == nil {
		return func() {}
	}

	start := time.Now()
	return func() {
		duration := time.Since(start)
		for i := range instrument {
			instrument[i].RecordTime(name, duration)
		}
	}
}
