package api

import (
	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/recshelf/recshelf-server/internal/errors"
	"github.com/recshelf/recshelf-server/internal/http/response"
)

// EnvelopeVersion is bumped whenever the envelope shape changes.
const EnvelopeVersion = response.Version

// Huma responses share their shape with the router fallbacks in package response.
type (
	APIEnvelope      = response.Envelope      //nolint:revive // API prefix is intentional for clarity
	APIErrorEnvelope = response.ErrorEnvelope //nolint:revive // API prefix is intentional for clarity
)

// EnvelopeTransformer is a huma transformer that wraps response bodies.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	switch body := v.(type) {
	case *APIError:
		return APIErrorEnvelope{
			Version: EnvelopeVersion,
			Code:    body.Code,
			Message: body.Message,
			Details: body.Details,
		}, nil
	case *domainerrors.Error:
		return APIErrorEnvelope{
			Version: EnvelopeVersion,
			Code:    string(body.Code),
			Message: body.Message,
			Details: body.Details,
		}, nil
	case error:
		return APIEnvelope{Version: EnvelopeVersion, Error: body.Error()}, nil
	}

	success := len(status) > 0 && status[0] == '2'
	return APIEnvelope{Version: EnvelopeVersion, Success: success, Data: v}, nil
}
