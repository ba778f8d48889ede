package authservice

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformedResponse is returned when a response body does not decode
// against the expected field-tag schema.
var ErrMalformedResponse = errors.New("malformed provider response")

// PlatformType is the provider's auth token platform class.
type PlatformType int32

const (
	PlatformTypeUnknown     PlatformType = 0
	PlatformTypeSteamClient PlatformType = 1
	PlatformTypeWebBrowser  PlatformType = 2
	PlatformTypeMobileApp   PlatformType = 3
)

// ConfirmationType is the kind of approval the companion device may perform.
type ConfirmationType int32

const (
	ConfirmationTypeUnknown            ConfirmationType = 0
	ConfirmationTypeNone               ConfirmationType = 1
	ConfirmationTypeEmailCode          ConfirmationType = 2
	ConfirmationTypeDeviceCode         ConfirmationType = 3
	ConfirmationTypeDeviceConfirmation ConfirmationType = 4
	ConfirmationTypeEmailConfirmation  ConfirmationType = 5
	ConfirmationTypeMachineToken       ConfirmationType = 6
)

// renewalTypeNone asks the provider not to rotate the refresh token.
const renewalTypeNone = 0

// Field tags. These are fixed by the external service.
const (
	deviceDetailsFriendlyName     protowire.Number = 1
	deviceDetailsPlatformType     protowire.Number = 2
	deviceDetailsOSType           protowire.Number = 3
	deviceDetailsGamingDeviceType protowire.Number = 4

	beginRequestDeviceDetails protowire.Number = 3

	beginResponseClientID             protowire.Number = 1
	beginResponseChallengeURL         protowire.Number = 2
	beginResponseRequestID            protowire.Number = 3
	beginResponseInterval             protowire.Number = 4
	beginResponseAllowedConfirmations protowire.Number = 5
	beginResponseVersion              protowire.Number = 6
	allowedConfirmationType           protowire.Number = 1
	allowedConfirmationAssociatedMsg  protowire.Number = 2

	pollRequestClientID  protowire.Number = 1
	pollRequestRequestID protowire.Number = 2

	pollResponseNewClientID          protowire.Number = 1
	pollResponseNewChallengeURL      protowire.Number = 2
	pollResponseRefreshToken         protowire.Number = 3
	pollResponseAccessToken          protowire.Number = 4
	pollResponseHadRemoteInteraction protowire.Number = 5
	pollResponseAccountName          protowire.Number = 6

	refreshRequestRefreshToken protowire.Number = 1
	refreshRequestSteamID      protowire.Number = 2
	refreshRequestRenewalType  protowire.Number = 3

	refreshResponseAccessToken  protowire.Number = 1
	refreshResponseRefreshToken protowire.Number = 2
)

// DeviceDetails describes this client to the provider when a pairing begins.
type DeviceDetails struct {
	FriendlyName     string
	PlatformType     PlatformType
	OSType           int32
	GamingDeviceType uint32
}

func (d DeviceDetails) marshal() []byte {
	var b []byte
	b = appendString(b, deviceDetailsFriendlyName, d.FriendlyName)
	b = appendVarint(b, deviceDetailsPlatformType, uint64(d.PlatformType))
	// int32 fields sign-extend to 64 bits on the wire.
	b = appendVarint(b, deviceDetailsOSType, uint64(int64(d.OSType)))
	b = appendVarint(b, deviceDetailsGamingDeviceType, uint64(d.GamingDeviceType))
	return b
}

func marshalBeginRequest(details DeviceDetails) []byte {
	var b []byte
	b = protowire.AppendTag(b, beginRequestDeviceDetails, protowire.BytesType)
	b = protowire.AppendBytes(b, details.marshal())
	return b
}

// AllowedConfirmation is one approval method offered by the provider.
type AllowedConfirmation struct {
	Type              ConfirmationType
	AssociatedMessage string
}

type beginResponse struct {
	clientID             uint64
	challengeURL         string
	requestID            []byte
	interval             float32
	allowedConfirmations []AllowedConfirmation
	version              int32
}

func unmarshalBeginResponse(b []byte) (*beginResponse, error) {
	var resp beginResponse
	err := walkFields(b, func(f field) error {
		switch f.num {
		case beginResponseClientID:
			return f.asUint64(&resp.clientID)
		case beginResponseChallengeURL:
			return f.asString(&resp.challengeURL)
		case beginResponseRequestID:
			return f.asBytes(&resp.requestID)
		case beginResponseInterval:
			return f.asFloat32(&resp.interval)
		case beginResponseAllowedConfirmations:
			var raw []byte
			if err := f.asBytes(&raw); err != nil {
				return err
			}
			conf, err := unmarshalAllowedConfirmation(raw)
			if err != nil {
				return err
			}
			resp.allowedConfirmations = append(resp.allowedConfirmations, conf)
		case beginResponseVersion:
			return f.asInt32(&resp.version)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func unmarshalAllowedConfirmation(b []byte) (AllowedConfirmation, error) {
	var conf AllowedConfirmation
	err := walkFields(b, func(f field) error {
		switch f.num {
		case allowedConfirmationType:
			var v int32
			if err := f.asInt32(&v); err != nil {
				return err
			}
			conf.Type = ConfirmationType(v)
		case allowedConfirmationAssociatedMsg:
			return f.asString(&conf.AssociatedMessage)
		}
		return nil
	})
	return conf, err
}

func marshalPollRequest(clientID uint64, requestID []byte) []byte {
	var b []byte
	b = appendVarint(b, pollRequestClientID, clientID)
	if len(requestID) > 0 {
		b = protowire.AppendTag(b, pollRequestRequestID, protowire.BytesType)
		b = protowire.AppendBytes(b, requestID)
	}
	return b
}

type pollResponse struct {
	newClientID          uint64
	newChallengeURL      string
	refreshToken         string
	accessToken          string
	hadRemoteInteraction bool
	accountName          string
}

func unmarshalPollResponse(b []byte) (*pollResponse, error) {
	var resp pollResponse
	err := walkFields(b, func(f field) error {
		switch f.num {
		case pollResponseNewClientID:
			return f.asUint64(&resp.newClientID)
		case pollResponseNewChallengeURL:
			return f.asString(&resp.newChallengeURL)
		case pollResponseRefreshToken:
			return f.asString(&resp.refreshToken)
		case pollResponseAccessToken:
			return f.asString(&resp.accessToken)
		case pollResponseHadRemoteInteraction:
			return f.asBool(&resp.hadRemoteInteraction)
		case pollResponseAccountName:
			return f.asString(&resp.accountName)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func marshalRefreshRequest(refreshToken string, steamID uint64) []byte {
	var b []byte
	b = appendString(b, refreshRequestRefreshToken, refreshToken)
	b = protowire.AppendTag(b, refreshRequestSteamID, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, steamID)
	// renewal_type is sent explicitly even though None is the zero value.
	b = protowire.AppendTag(b, refreshRequestRenewalType, protowire.VarintType)
	b = protowire.AppendVarint(b, renewalTypeNone)
	return b
}

type refreshResponse struct {
	accessToken  string
	refreshToken string
}

func unmarshalRefreshResponse(b []byte) (*refreshResponse, error) {
	var resp refreshResponse
	err := walkFields(b, func(f field) error {
		switch f.num {
		case refreshResponseAccessToken:
			return f.asString(&resp.accessToken)
		case refreshResponseRefreshToken:
			return f.asString(&resp.refreshToken)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// field is one decoded tag/value pair. Only the member matching typ is set.
type field struct {
	num     protowire.Number
	typ     protowire.Type
	varint  uint64
	fixed32 uint32
	fixed64 uint64
	raw     []byte
}

// walkFields decodes every field in b and hands it to visit. Fields visit does
// not recognise are skipped, so newer provider schemas keep decoding.
func walkFields(b []byte, visit func(field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %w", ErrMalformedResponse, protowire.ParseError(n))
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(b)
		case protowire.Fixed32Type:
			f.fixed32, n = protowire.ConsumeFixed32(b)
		case protowire.Fixed64Type:
			f.fixed64, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			f.raw, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("%w: field %d: %w", ErrMalformedResponse, num, protowire.ParseError(n))
		}
		b = b[n:]

		if err := visit(f); err != nil {
			return err
		}
	}
	return nil
}

func (f field) expect(typ protowire.Type) error {
	if f.typ != typ {
		return fmt.Errorf("%w: field %d has wire type %d, want %d", ErrMalformedResponse, f.num, f.typ, typ)
	}
	return nil
}

func (f field) asUint64(dst *uint64) error {
	if err := f.expect(protowire.VarintType); err != nil {
		return err
	}
	*dst = f.varint
	return nil
}

func (f field) asInt32(dst *int32) error {
	if err := f.expect(protowire.VarintType); err != nil {
		return err
	}
	*dst = int32(f.varint)
	return nil
}

func (f field) asBool(dst *bool) error {
	if err := f.expect(protowire.VarintType); err != nil {
		return err
	}
	*dst = protowire.DecodeBool(f.varint)
	return nil
}

func (f field) asFloat32(dst *float32) error {
	if err := f.expect(protowire.Fixed32Type); err != nil {
		return err
	}
	*dst = math.Float32frombits(f.fixed32)
	return nil
}

func (f field) asString(dst *string) error {
	if err := f.expect(protowire.BytesType); err != nil {
		return err
	}
	*dst = string(f.raw)
	return nil
}

func (f field) asBytes(dst *[]byte) error {
	if err := f.expect(protowire.BytesType); err != nil {
		return err
	}
	*dst = append([]byte(nil), f.raw...)
	return nil
}
