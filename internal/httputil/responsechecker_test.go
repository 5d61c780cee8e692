package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bazbom/bazbom"
)

var respBody = `Sorry this resource isn't available at the moment, please try again later when the resource might be available`

func TestCheckResponseAcceptable(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer svr.Close()

	res, err := svr.Client().Get(svr.URL)
	if err != nil {
		t.Fatal(err)
	}
	if err := CheckResponse(res, http.StatusOK); err != nil {
		t.Fatalf("expected no error for an acceptable status, got %v", err)
	}
}

func TestCheckResponseNotFoundIsPermanent(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(respBody))
	}))
	defer svr.Close()

	res, err := svr.Client().Get(svr.URL)
	if err != nil {
		t.Fatal(err)
	}
	err = CheckResponse(res, http.StatusOK)
	if err == nil {
		t.Fatal("expected an error")
	}
	berr, ok := err.(*bazbom.Error)
	if !ok {
		t.Fatalf("expected a *bazbom.Error, got %T: %v", err, err)
	}
	if berr.Kind != bazbom.ErrPermanent {
		t.Errorf("kind = %q, want %q (a 404 will never succeed on retry)", berr.Kind, bazbom.ErrPermanent)
	}
	if !strings.Contains(berr.Error(), "Sorry this resource isn't available") {
		t.Errorf("error should include the response body snippet: %v", berr)
	}
}

func TestCheckResponseRateLimitedIsTransient(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer svr.Close()

	res, err := svr.Client().Get(svr.URL)
	if err != nil {
		t.Fatal(err)
	}
	err = CheckResponse(res, http.StatusOK)
	if err == nil {
		t.Fatal("expected an error")
	}
	berr, ok := err.(*bazbom.Error)
	if !ok {
		t.Fatalf("expected a *bazbom.Error, got %T: %v", err, err)
	}
	if berr.Kind != bazbom.ErrTransient {
		t.Errorf("kind = %q, want %q (a 429 may succeed on retry)", berr.Kind, bazbom.ErrTransient)
	}
}

func TestCheckResponseServerErrorIsTransient(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer svr.Close()

	res, err := svr.Client().Get(svr.URL)
	if err != nil {
		t.Fatal(err)
	}
	err = CheckResponse(res, http.StatusOK)
	if err == nil {
		t.Fatal("expected an error")
	}
	berr, ok := err.(*bazbom.Error)
	if !ok {
		t.Fatalf("expected a *bazbom.Error, got %T: %v", err, err)
	}
	if berr.Kind != bazbom.ErrTransient {
		t.Errorf("kind = %q, want %q (a 502 may succeed on retry)", berr.Kind, bazbom.ErrTransient)
	}
}
