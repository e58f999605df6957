package generator

import (
	"actorbot/internal/core/domain"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const (
	codeContextLengthExceeded = "context_length_exceeded"
	typeInvalidRequest        = "invalid_request_error"
	contextLengthMessage      = "maximum context length"
)

// classifyError maps backend errors onto domain.ErrContextLengthExceeded and *domain.InvalidRequestError.
// Anything else is returned unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if code, ok := apiErr.Code.(string); ok && code == codeContextLengthExceeded {
			return fmt.Errorf("%w: %s", domain.ErrContextLengthExceeded, apiErr.Message)
		}

		if strings.Contains(apiErr.Message, contextLengthMessage) {
			return fmt.Errorf("%w: %s", domain.ErrContextLengthExceeded, apiErr.Message)
		}

		if apiErr.Type == typeInvalidRequest || apiErr.HTTPStatusCode == http.StatusBadRequest {
			return &domain.InvalidRequestError{Message: apiErr.Message, Err: err}
		}

		return err
	}

	if strings.Contains(err.Error(), contextLengthMessage) {
		return fmt.Errorf("%w: %v", domain.ErrContextLengthExceeded, err)
	}

	return err
}
