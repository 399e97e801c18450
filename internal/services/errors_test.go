package services

import (
	"errors"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	err := Wrap(ErrTemplateNotFound, "template", "resolve", "usd_asset_publish", nil)
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
	want := "template not found: template: resolve: usd_asset_publish"
	if err.Error() != want {
		t.Fatalf("message = %q, want %q", err.Error(), want)
	}
}

func TestWrapWrapsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(ErrValidation, "pipeline", "", "", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation marker, got %v", err)
	}
}

func TestWrapNilMarkerDefaults(t *testing.T) {
	err := Wrap(nil, "menu", "generate", "no entries", nil)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected default marker, got %v", err)
	}
}
