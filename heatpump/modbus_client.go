// Package heatpump talks Modbus to a generic air/ground-to-water
// monoblock unit: it reads the temperatures the planner needs and writes
// the active heating-curve offset.
package heatpump

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/goburrow/modbus"
)

// Modbus register map. Temperatures are signed 16-bit values in tenths
// of a degree; the curve offset is a signed whole degree.
const (
	regOutdoorTemp    = 0x0001
	regSupplyTemp     = 0x0002
	regReturnTemp     = 0x0003
	regFlowRate       = 0x0004 // l/min, tenths
	regCompressorFreq = 0x0010 // Hz
	regOperatingMode  = 0x0011 // 0: standby, 1: heating, 2: cooling, 3: DHW
	regDefrostActive  = 0x0012 // 0/1
	regCurveOffset    = 0x0100 // holding, signed degC
	regPowerDraw      = 0x0020 // W
)

// DefaultSlaveID is the unit address most monoblocks ship with.
const DefaultSlaveID = 1

// Client represents the Modbus connection to the heat-pump unit
type Client struct {
	client     modbus.Client
	handler    *modbus.RTUClientHandler
	tcpHandler *modbus.TCPClientHandler
}

// NewRTUClient connects over a serial line
func NewRTUClient(device string, baudRate int, slaveID byte) (*Client, error) {
	handler := modbus.NewRTUClientHandler(device)
	handler.BaudRate = baudRate
	handler.DataBits = 8
	handler.Parity = "N"
	handler.StopBits = 1
	handler.SlaveId = slaveID
	handler.Timeout = 1 * time.Second

	if err := handler.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect: %v", err)
	}

	return &Client{
		client:  modbus.NewClient(handler),
		handler: handler,
	}, nil
}

// NewTCPClient connects over Modbus TCP
func NewTCPClient(address string, slaveID byte) (*Client, error) {
	handler := modbus.NewTCPClientHandler(address)
	handler.SlaveId = slaveID
	handler.Timeout = 1 * time.Second

	if err := handler.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect: %v", err)
	}

	return &Client{
		client:     modbus.NewClient(handler),
		tcpHandler: handler,
	}, nil
}

// Close closes the Modbus connection
func (c *Client) Close() error {
	if c.handler != nil {
		return c.handler.Close()
	}
	if c.tcpHandler != nil {
		return c.tcpHandler.Close()
	}
	return nil
}

func bytesToS16(data []byte) int16 {
	return int16(binary.BigEndian.Uint16(data))
}

func bytesToU16(data []byte) uint16 {
	return binary.BigEndian.Uint16(data)
}

// UnitStatus holds one snapshot of the unit's running state
type UnitStatus struct {
	OutdoorTemp    float64 // degC
	SupplyTemp     float64 // degC, leaving water
	ReturnTemp     float64 // degC
	FlowRate       float64 // l/min
	CompressorFreq float64 // Hz
	OperatingMode  uint16
	DefrostActive  bool
	CurveOffset    int     // degC
	PowerDraw      float64 // kW
}

// ReadUnitStatus reads the full status block from the unit
func (c *Client) ReadUnitStatus() (*UnitStatus, error) {
	temps, err := c.client.ReadInputRegisters(regOutdoorTemp, 4)
	if err != nil {
		return nil, fmt.Errorf("failed to read temperature block: %w", err)
	}

	state, err := c.client.ReadInputRegisters(regCompressorFreq, 3)
	if err != nil {
		return nil, fmt.Errorf("failed to read state block: %w", err)
	}

	power, err := c.client.ReadInputRegisters(regPowerDraw, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to read power draw: %w", err)
	}

	offset, err := c.client.ReadHoldingRegisters(regCurveOffset, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to read curve offset: %w", err)
	}

	return &UnitStatus{
		OutdoorTemp:    float64(bytesToS16(temps[0:2])) / 10.0,
		SupplyTemp:     float64(bytesToS16(temps[2:4])) / 10.0,
		ReturnTemp:     float64(bytesToS16(temps[4:6])) / 10.0,
		FlowRate:       float64(bytesToS16(temps[6:8])) / 10.0,
		CompressorFreq: float64(bytesToU16(state[0:2])),
		OperatingMode:  bytesToU16(state[2:4]),
		DefrostActive:  bytesToU16(state[4:6]) != 0,
		CurveOffset:    int(bytesToS16(offset[0:2])),
		PowerDraw:      float64(bytesToU16(power[0:2])) / 1000.0,
	}, nil
}

// WriteCurveOffset writes the heating-curve offset register
func (c *Client) WriteCurveOffset(offset int) error {
	if offset < -9 || offset > 9 {
		return fmt.Errorf("curve offset %d outside the unit's accepted range", offset)
	}
	_, err := c.client.WriteSingleRegister(regCurveOffset, uint16(int16(offset)))
	if err != nil {
		return fmt.Errorf("failed to write curve offset: %w", err)
	}
	return nil
}
