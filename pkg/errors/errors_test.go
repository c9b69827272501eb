package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
		{code: CodeRemote, status: http.StatusBadGateway, publicMsg: "erp call failed", detailsOK: true},
		{code: CodeResolution, status: http.StatusUnprocessableEntity, publicMsg: "reference could not be resolved", detailsOK: true},
		{code: CodePartialWorkflow, status: http.StatusBadGateway, publicMsg: "workflow did not complete", detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestWrapKeepsSentinelMatchable(t *testing.T) {
	err := fmt.Errorf("checkout: %w", Wrap(CodeValidation, ErrEmptyCart, "cart contains no lines"))
	if !stdErrors.Is(err, ErrEmptyCart) {
		t.Fatal("expected ErrEmptyCart to be reachable through the chain")
	}
	if CodeOf(err) != CodeValidation {
		t.Fatalf("expected validation code, got %s", CodeOf(err))
	}
	if CodeOf(stdErrors.New("plain")) != CodeInternal {
		t.Fatal("untyped errors should report internal")
	}
}

func TestWithDetailsNilSafe(t *testing.T) {
	var e *Error
	if e.WithDetails(map[string]any{"a": 1}) != nil {
		t.Fatal("expected nil receiver to stay nil")
	}
	if e.Code() != CodeInternal {
		t.Fatal("nil error should report internal code")
	}
}

type fakeRemote struct{}

func (fakeRemote) Error() string   { return "erp pos.order.create: boom" }
func (fakeRemote) RemoteCode() int { return 200 }
func (fakeRemote) Raw() string     { return "Record does not exist" }

func TestDumpCapturesRemoteAndPostgresDetails(t *testing.T) {
	remote := Wrap(CodeRemote, fakeRemote{}, "create order failed")
	d := Dump(remote)
	if d.Code != CodeRemote || d.RemoteCode != 200 || d.RemoteMessage != "Record does not exist" {
		t.Fatalf("unexpected remote dump %+v", d)
	}
	if len(d.Chain) != 2 {
		t.Fatalf("expected 2 chain entries, got %v", d.Chain)
	}

	pg := Wrap(CodeInternal, &pgconn.PgError{Code: "23505", ConstraintName: "checkout_runs_pkey"}, "insert run")
	d = Dump(pg)
	if d.PGCode != "23505" || d.PGConstraint != "checkout_runs_pkey" {
		t.Fatalf("unexpected pg dump %+v", d)
	}
}
