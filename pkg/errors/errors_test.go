package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicies(t *testing.T) {
	want := map[Code]Metadata{
		CodeValidation:         {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", DetailsAllowed: true, ExposeMessage: true},
		CodeUnauthorized:       {HTTPStatus: http.StatusUnauthorized, PublicMessage: "authentication required", ExposeMessage: true},
		CodeStateConflict:      {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "state transition disallowed", DetailsAllowed: true, ExposeMessage: true},
		CodeInsufficientStock:  {HTTPStatus: http.StatusConflict, PublicMessage: "insufficient stock", DetailsAllowed: true, ExposeMessage: true},
		CodeDataUnavailable:    {HTTPStatus: http.StatusServiceUnavailable, PublicMessage: "inventory data unavailable", Retryable: true},
		CodePersistenceFailure: {HTTPStatus: http.StatusBadGateway, PublicMessage: "could not save changes", Retryable: true, DetailsAllowed: true, ExposeMessage: true},
		CodeDependency:         {HTTPStatus: http.StatusServiceUnavailable, PublicMessage: "dependency unavailable", Retryable: true, DetailsAllowed: true},
		CodeInternal:           {HTTPStatus: http.StatusInternalServerError, PublicMessage: "internal server error", Retryable: true},
	}
	for code, meta := range want {
		assert.Equal(t, meta, MetadataFor(code), code)
	}

	assert.Equal(t, MetadataFor(CodeInternal), MetadataFor("SOMETHING_UNKNOWN"))
	assert.Equal(t, http.StatusTooManyRequests, MetadataFor(CodeRateLimit).HTTPStatus)
	assert.Equal(t, http.StatusConflict, MetadataFor(CodeIdempotency).HTTPStatus)
}

func TestNewAndWrap(t *testing.T) {
	e := New(CodeValidation, "missing foo")
	assert.Equal(t, CodeValidation, e.Code())
	assert.Equal(t, "missing foo", e.Message())
	assert.Nil(t, e.Details())
	assert.Equal(t, map[string]any{"field": "foo"}, e.WithDetails(map[string]any{"field": "foo"}).Details())
	assert.Equal(t, "VALIDATION_ERROR: missing foo", e.Error())

	cause := stdErrors.New("dial tcp: refused")
	wrapped := Wrap(CodeDependency, cause, "ping redis")
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, "DEPENDENCY_ERROR: ping redis: dial tcp: refused", wrapped.Error())
}

func TestAsAndIsCodeWalkTheChain(t *testing.T) {
	outer := fmt.Errorf("reserve: %w", New(CodeInsufficientStock, "only 1 left"))

	got := As(outer)
	require.NotNil(t, got)
	assert.Equal(t, CodeInsufficientStock, got.Code())
	assert.True(t, IsCode(outer, CodeInsufficientStock))
	assert.False(t, IsCode(outer, CodeValidation))

	assert.Nil(t, As(nil))
	assert.Nil(t, As(stdErrors.New("plain")))
	assert.False(t, IsCode(nil, CodeInternal))
}

func TestLogFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "parts_oem_part_number_key", TableName: "parts"}
	err := fmt.Errorf("insert part: %w",
		Wrap(CodeConflict, pgErr, "duplicate part").WithDetails(map[string]any{"step": "insert"}))

	fields := LogFields(err)
	assert.Equal(t, string(CodeConflict), fields["error_code"])
	assert.Equal(t, "23505", fields["pg_code"])
	assert.Equal(t, "parts_oem_part_number_key", fields["pg_constraint"])
	assert.NotContains(t, fields, "pg_detail")
	assert.Equal(t, "insert", fields["step"])
	assert.Len(t, fields["error_chain"], 3)

	pqFields := LogFields(&pq.Error{Code: "23503", Table: "service_records"})
	assert.Equal(t, "23503", pqFields["pg_code"])
	assert.Equal(t, "service_records", pqFields["pg_table"])

	assert.Nil(t, LogFields(nil))
}
