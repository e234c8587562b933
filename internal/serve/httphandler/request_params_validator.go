package httphandler

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/stellar/go-stellar-sdk/support/http/httpdecode"

	"github.com/impactsmiles/smiles-wallet/internal/apptracker"
	"github.com/impactsmiles/smiles-wallet/internal/serve/httperror"
	"github.com/impactsmiles/smiles-wallet/internal/validators"
)

func DecodeJSONAndValidate(ctx context.Context, req *http.Request, reqBody interface{}, appTracker apptracker.AppTracker) *httperror.ErrorResponse {
	err := httpdecode.DecodeJSON(req, reqBody)
	if err != nil {
		return httperror.BadRequest("Invalid request body.", nil)
	}

	return ValidateRequestParams(ctx, reqBody, appTracker)
}

var validate = validators.NewValidator()

func ValidateRequestParams(ctx context.Context, reqParams interface{}, appTracker apptracker.AppTracker) *httperror.ErrorResponse {
	if err := validate.StructCtx(ctx, reqParams); err != nil {
		if vErrs, ok := err.(validator.ValidationErrors); ok {
			extras := validators.ParseValidationError(vErrs)
			return httperror.BadRequest("Validation error.", extras)
		}
		return httperror.InternalServerError(ctx, "", err, nil, appTracker)
	}
	return nil
}
