package domain

import (
	"bytes"
	"strconv"
)

// Watts is a magnitude on the wire. The EMS sends it as a JSON number or a
// quoted string depending on version, so it unmarshals both. Negative values
// clamp to zero, which downstream resolves to auto.
type Watts uint32

func (w *Watts) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*w = 0
		return nil
	}
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return err
	}
	if v < 0 {
		v = 0
	}
	if v > int64(^uint32(0)) {
		v = int64(^uint32(0))
	}
	*w = Watts(v)
	return nil
}

// WebhookCommand is the out-of-cycle order the EMS can push over HTTP.
type WebhookCommand struct {
	PlantID string `json:"plant_id"`
	Command string `json:"command"`
	Value   Watts  `json:"value"`
}

// ToOperationCommand maps the loose wire command onto the operation model.
// Unknown commands and missing magnitudes degrade to auto downstream.
func (c WebhookCommand) ToOperationCommand() OperationCommand {
	return OperationCommand{
		Mode:       OperationModeFromString(c.Command),
		MagnitudeW: uint32(c.Value),
	}
}
