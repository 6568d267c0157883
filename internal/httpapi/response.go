package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/chartqna/internal/qna"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

// statusForKind maps a generation failure to the response status.
func statusForKind(kind qna.Kind) int {
	switch kind {
	case qna.KindInput, qna.KindTemplate:
		return http.StatusBadRequest
	case qna.KindMalformedResponse, qna.KindEndpoint:
		return http.StatusBadGateway
	case qna.KindConfiguration:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorCode(kind qna.Kind) string {
	if kind == "" {
		return "internal_error"
	}
	return string(kind) + "_error"
}

func writeExport(c *gin.Context, res qna.Result) {
	b, err := qna.MarshalExport(res)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "export_error", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+qna.ExportFilename+`"`)
	c.Data(http.StatusOK, qna.ExportContentType, b)
}
