package protocol

import (
	"sync"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
)

var (
	validatorOnce sync.Once
	validatorInst *validator.Validate
)

func sharedValidator() *validator.Validate {
	validatorOnce.Do(func() {
		validatorInst = validator.New()
	})
	return validatorInst
}

// Validate runs struct-tag validation against any league.v2 payload.
func Validate(payload any) error {
	return sharedValidator().Struct(payload)
}

// Marshal encodes a value using sonic, the teacher's JSON library of
// choice for every wire payload.
func Marshal(v any) ([]byte, error) {
	return sonic.Marshal(v)
}

// Unmarshal decodes bytes into v with sonic. Unknown fields are ignored
// by default, preserving the forward-compatibility guarantee spec.md
// §4.1 requires.
func Unmarshal(data []byte, v any) error {
	return sonic.Unmarshal(data, v)
}

// DecodePayload re-marshals an `any`-typed envelope payload (as decoded
// generically from JSON-RPC params) and unmarshals it into a concrete
// message struct, then validates it. This is the standard "decode then
// validate" step every inbound handler performs.
func DecodePayload(raw any, dst any) error {
	data, err := Marshal(raw)
	if err != nil {
		return err
	}
	if err := Unmarshal(data, dst); err != nil {
		return err
	}
	return Validate(dst)
}
