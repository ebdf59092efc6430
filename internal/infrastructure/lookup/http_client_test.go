package lookup

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestHTTPClient_Fetch(t *testing.T) {
	known := uuid.New()
	missing := uuid.New()
	deleted := uuid.New()
	broken := uuid.New()
	slow := uuid.New()

	var gotAuth, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/customers/" + known.String() + "/summary":
			gotAuth = r.Header.Get("Authorization")
			gotPath = r.URL.Path
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"display_name":"Dana Smith","exists":true}`))
		case "/customers/" + deleted.String() + "/summary":
			w.Write([]byte(`{"display_name":"Gone","exists":false}`))
		case "/customers/" + broken.String() + "/summary":
			w.WriteHeader(http.StatusInternalServerError)
		case "/customers/" + slow.String() + "/summary":
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewHTTPClient(map[Kind]string{KindCustomer: server.URL + "/"}, 200*time.Millisecond, quietLogger())
	ctx := context.Background()

	summary, err := client.Fetch(ctx, KindCustomer, known, "secret")
	if err != nil {
		t.Fatalf("fetch known: %v", err)
	}
	if summary.ID != known || summary.Kind != KindCustomer || summary.DisplayName != "Dana Smith" {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("authorization=%q", gotAuth)
	}
	if gotPath != "/customers/"+known.String()+"/summary" {
		t.Fatalf("path=%q", gotPath)
	}

	tests := []struct {
		name string
		kind Kind
		id   uuid.UUID
		want error
	}{
		{"404", KindCustomer, missing, ErrEntityNotFound},
		{"exists false", KindCustomer, deleted, ErrEntityNotFound},
		{"500", KindCustomer, broken, ErrEntityUnavailable},
		{"timeout", KindCustomer, slow, ErrEntityUnavailable},
		{"unconfigured kind", KindVehicle, known, ErrEntityUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Fetch(ctx, tt.kind, tt.id, "")
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestHTTPClient_ConnectionRefusedIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewHTTPClient(map[Kind]string{KindEmployee: url}, time.Second, quietLogger())
	if _, err := client.Fetch(context.Background(), KindEmployee, uuid.New(), ""); !errors.Is(err, ErrEntityUnavailable) {
		t.Fatalf("got %v, want ErrEntityUnavailable", err)
	}
}
