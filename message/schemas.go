package message

import (
	"fmt"

	"arcus/opcode"
	"arcus/payload"
)

// KeyValue is one entry of the {key, value} string-pair arrays used by
// several application opcodes (spec.md §6.2).
type KeyValue struct {
	Key   string
	Value string
}

func keyValueArray(pairs []KeyValue) payload.Array {
	arr := make(payload.Array, len(pairs))
	for i, kv := range pairs {
		o := payload.NewObject()
		_ = o.Set("key", payload.StringValue(kv.Key))
		_ = o.Set("value", payload.StringValue(kv.Value))
		arr[i] = payload.ObjectValue(o)
	}
	return arr
}

func keyValueArrayFrom(arr payload.Array) ([]KeyValue, error) {
	out := make([]KeyValue, 0, len(arr))
	for _, v := range arr {
		o, ok := v.Object()
		if !ok {
			return nil, fmt.Errorf("message: data array entry is not an object")
		}
		keyVal, ok := o.Get("key")
		if !ok {
			return nil, fmt.Errorf("message: data array entry missing key")
		}
		key, ok := keyVal.String()
		if !ok {
			return nil, fmt.Errorf("message: data array entry key is not a string")
		}
		valVal, ok := o.Get("value")
		if !ok {
			return nil, fmt.Errorf("message: data array entry missing value")
		}
		val, ok := valVal.String()
		if !ok {
			return nil, fmt.Errorf("message: data array entry value is not a string")
		}
		out = append(out, KeyValue{Key: key, Value: val})
	}
	return out, nil
}

// --- soft_stop: agent -> game ---

// SoftStopParams holds the validated fields of a soft_stop message.
type SoftStopParams struct {
	TimeoutSeconds int32
}

// PrepareSoftStop builds a soft_stop message.
func PrepareSoftStop(timeoutSeconds int32) (Message, error) {
	p := payload.NewPayload()
	if err := p.SetValInt("timeout", timeoutSeconds); err != nil {
		return Message{}, err
	}
	return New(opcode.SoftStop, p), nil
}

// ValidateSoftStop extracts and typechecks a soft_stop message's payload.
func ValidateSoftStop(m *Message) (SoftStopParams, error) {
	if m.code != opcode.SoftStop {
		return SoftStopParams{}, fmt.Errorf("message: expected soft_stop, got %s", m.code)
	}
	p := m.pl
	timeout, err := p.ValInt("timeout")
	if err != nil {
		return SoftStopParams{}, fmt.Errorf("message: soft_stop.timeout: %w", err)
	}
	return SoftStopParams{TimeoutSeconds: timeout}, nil
}

// --- allocated / metadata / reverse_metadata / custom_command: share the
// {data: [{key,value}]} schema. ---

// DataParams holds the validated fields shared by the key/value opcodes.
type DataParams struct {
	Data []KeyValue
}

func prepareDataMessage(code opcode.Code, data []KeyValue) (Message, error) {
	p := payload.NewPayload()
	if err := p.SetValArray("data", keyValueArray(data)); err != nil {
		return Message{}, err
	}
	return New(code, p), nil
}

func validateDataMessage(expect opcode.Code, m *Message) (DataParams, error) {
	if m.code != expect {
		return DataParams{}, fmt.Errorf("message: expected %s, got %s", expect, m.code)
	}
	p := m.pl
	arr, err := p.ValArray("data")
	if err != nil {
		return DataParams{}, fmt.Errorf("message: %s.data: %w", expect, err)
	}
	kvs, err := keyValueArrayFrom(arr)
	if err != nil {
		return DataParams{}, err
	}
	return DataParams{Data: kvs}, nil
}

func PrepareAllocated(data []KeyValue) (Message, error) { return prepareDataMessage(opcode.Allocated, data) }
func ValidateAllocated(m *Message) (DataParams, error)  { return validateDataMessage(opcode.Allocated, m) }

func PrepareMetadata(data []KeyValue) (Message, error) { return prepareDataMessage(opcode.Metadata, data) }
func ValidateMetadata(m *Message) (DataParams, error)  { return validateDataMessage(opcode.Metadata, m) }

func PrepareReverseMetadata(data []KeyValue) (Message, error) {
	return prepareDataMessage(opcode.ReverseMetadata, data)
}
func ValidateReverseMetadata(m *Message) (DataParams, error) {
	return validateDataMessage(opcode.ReverseMetadata, m)
}

func PrepareCustomCommand(data []KeyValue) (Message, error) {
	return prepareDataMessage(opcode.CustomCommand, data)
}
func ValidateCustomCommand(m *Message) (DataParams, error) {
	return validateDataMessage(opcode.CustomCommand, m)
}

// --- live_state: game -> agent ---

// LiveStateParams holds the validated fields of a live_state message.
type LiveStateParams struct {
	Players    int32
	MaxPlayers int32
	Name       string
	Map        string
	Mode       string
	Version    string
	Extra      *payload.Object
}

// PrepareLiveState builds a live_state message. extra, if non-nil, is
// merged in as additional free-form fields.
func PrepareLiveState(p LiveStateParams) (Message, error) {
	pl := payload.NewPayload()
	if p.Extra != nil {
		pl.SetValRootObject(*p.Extra)
	}
	if err := pl.SetValInt("players", p.Players); err != nil {
		return Message{}, err
	}
	if err := pl.SetValInt("maxPlayers", p.MaxPlayers); err != nil {
		return Message{}, err
	}
	if err := pl.SetValString("name", p.Name); err != nil {
		return Message{}, err
	}
	if err := pl.SetValString("map", p.Map); err != nil {
		return Message{}, err
	}
	if err := pl.SetValString("mode", p.Mode); err != nil {
		return Message{}, err
	}
	if err := pl.SetValString("version", p.Version); err != nil {
		return Message{}, err
	}
	return New(opcode.LiveState, pl), nil
}

// ValidateLiveState extracts and typechecks a live_state message.
func ValidateLiveState(m *Message) (LiveStateParams, error) {
	if m.code != opcode.LiveState {
		return LiveStateParams{}, fmt.Errorf("message: expected live_state, got %s", m.code)
	}
	p := m.pl
	players, err := p.ValInt("players")
	if err != nil {
		return LiveStateParams{}, fmt.Errorf("message: live_state.players: %w", err)
	}
	maxPlayers, err := p.ValInt("maxPlayers")
	if err != nil {
		return LiveStateParams{}, fmt.Errorf("message: live_state.maxPlayers: %w", err)
	}
	name, err := p.ValString("name")
	if err != nil {
		return LiveStateParams{}, fmt.Errorf("message: live_state.name: %w", err)
	}
	mapName, err := p.ValString("map")
	if err != nil {
		return LiveStateParams{}, fmt.Errorf("message: live_state.map: %w", err)
	}
	mode, err := p.ValString("mode")
	if err != nil {
		return LiveStateParams{}, fmt.Errorf("message: live_state.mode: %w", err)
	}
	version, err := p.ValString("version")
	if err != nil {
		return LiveStateParams{}, fmt.Errorf("message: live_state.version: %w", err)
	}
	extra := p.ValRootObject()
	return LiveStateParams{
		Players: players, MaxPlayers: maxPlayers,
		Name: name, Map: mapName, Mode: mode, Version: version,
		Extra: &extra,
	}, nil
}

// --- host_information / application_instance_information: free-form ---

// ObjectParams holds a single free-form object field, shared by the
// pass-through opcodes.
type ObjectParams struct {
	Object payload.Object
}

func PrepareHostInformation(o payload.Object) (Message, error) {
	p := payload.NewPayload()
	p.SetValRootObject(o)
	return New(opcode.HostInformation, p), nil
}

func ValidateHostInformation(m *Message) (ObjectParams, error) {
	if m.code != opcode.HostInformation {
		return ObjectParams{}, fmt.Errorf("message: expected host_information, got %s", m.code)
	}
	return ObjectParams{Object: m.pl.ValRootObject()}, nil
}

func PrepareApplicationInstanceInformation(o payload.Object) (Message, error) {
	p := payload.NewPayload()
	p.SetValRootObject(o)
	return New(opcode.ApplicationInstanceInformation, p), nil
}

func ValidateApplicationInstanceInformation(m *Message) (ObjectParams, error) {
	if m.code != opcode.ApplicationInstanceInformation {
		return ObjectParams{}, fmt.Errorf("message: expected application_instance_information, got %s", m.code)
	}
	return ObjectParams{Object: m.pl.ValRootObject()}, nil
}

// --- application_instance_status: agent -> game ---

// StatusParams holds the validated fields of an application_instance_status message.
type StatusParams struct {
	Status int32
}

func PrepareApplicationInstanceStatus(status int32) (Message, error) {
	p := payload.NewPayload()
	if err := p.SetValInt("status", status); err != nil {
		return Message{}, err
	}
	return New(opcode.ApplicationInstanceStatus, p), nil
}

func ValidateApplicationInstanceStatus(m *Message) (StatusParams, error) {
	if m.code != opcode.ApplicationInstanceStatus {
		return StatusParams{}, fmt.Errorf("message: expected application_instance_status, got %s", m.code)
	}
	status, err := m.pl.ValInt("status")
	if err != nil {
		return StatusParams{}, fmt.Errorf("message: application_instance_status.status: %w", err)
	}
	return StatusParams{Status: status}, nil
}

// Validate dispatches to the schema validator for m's opcode. It is the
// single entry point used by outgoing validation (server/client
// send_<opcode>) and incoming dispatch, per the validate/invoke split in
// one/arcus/internal/messages.h.
func Validate(m *Message) error {
	switch m.code {
	case opcode.SoftStop:
		_, err := ValidateSoftStop(m)
		return err
	case opcode.Allocated:
		_, err := ValidateAllocated(m)
		return err
	case opcode.Metadata:
		_, err := ValidateMetadata(m)
		return err
	case opcode.ReverseMetadata:
		_, err := ValidateReverseMetadata(m)
		return err
	case opcode.CustomCommand:
		_, err := ValidateCustomCommand(m)
		return err
	case opcode.LiveState:
		_, err := ValidateLiveState(m)
		return err
	case opcode.HostInformation:
		_, err := ValidateHostInformation(m)
		return err
	case opcode.ApplicationInstanceInformation:
		_, err := ValidateApplicationInstanceInformation(m)
		return err
	case opcode.ApplicationInstanceStatus:
		_, err := ValidateApplicationInstanceStatus(m)
		return err
	case opcode.Hello, opcode.Health:
		return nil
	default:
		return fmt.Errorf("message: no schema registered for opcode %s", m.code)
	}
}
