package domain

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_MODBUS       = "modbus"
	ACTOR_ID_SPOCK        = "spock"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_CYCLE        = "cycle"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

type ReadTelemetryRequest struct {
	ActorRequestMixIn
}

type ReadTelemetryResponse struct {
	ActorResponseMixIn
	Snapshot *TelemetrySnapshot
}

type ApplyOperationRequest struct {
	ActorRequestMixIn
	Command OperationCommand
}

type ApplyOperationResponse struct {
	ActorResponseMixIn
}

type PushTelemetryRequest struct {
	ActorRequestMixIn
	Snapshot *TelemetrySnapshot
}

type PushTelemetryResponse struct {
	ActorResponseMixIn
	InvalidToken bool
	Command      OperationCommand
}

type SetPollingEnabledRequest struct {
	ActorRequestMixIn
	Enabled bool
}

type SetPollingEnabledResponse struct {
	ActorResponseMixIn
	Enabled bool
}

type GetPollingEnabledRequest struct {
	ActorRequestMixIn
}

type GetPollingEnabledResponse struct {
	ActorResponseMixIn
	Enabled bool
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors  []GenericSensor
	Switches []GenericSwitch
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
