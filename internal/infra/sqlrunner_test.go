package infra

import (
	"testing"

	"mediaforge/internal/sqlinline"
)

func TestExtractMarker(t *testing.T) {
	marker, rest, err := extractMarker("--sql 123e4567-e89b-12d3-a456-426614174000\nselect 1;")
	if err != nil {
		t.Fatalf("extractMarker: %v", err)
	}
	if marker != "123e4567-e89b-12d3-a456-426614174000" {
		t.Errorf("marker = %q", marker)
	}
	if rest != "select 1;" {
		t.Errorf("rest = %q", rest)
	}
}

func TestExtractMarkerRejectsUnmarkedSQL(t *testing.T) {
	for _, q := range []string{
		"select 1;",
		"-- sql 123e4567-e89b-12d3-a456-426614174000\nselect 1;",
		"--sql not-a-uuid\nselect 1;",
	} {
		if _, _, err := extractMarker(q); err == nil {
			t.Errorf("expected %q to be rejected", q)
		}
	}
}

func TestAllInlineStatementsCarryMarkers(t *testing.T) {
	statements := map[string]string{
		"QGetBalance":               sqlinline.QGetBalance,
		"QDeductCredits":            sqlinline.QDeductCredits,
		"QRefundCredits":            sqlinline.QRefundCredits,
		"QInsertGeneration":         sqlinline.QInsertGeneration,
		"QSelectGeneration":         sqlinline.QSelectGeneration,
		"QSelectGenerationForOwner": sqlinline.QSelectGenerationForOwner,
		"QListGenerationsByOwner":   sqlinline.QListGenerationsByOwner,
		"QMarkGenerationProcessing": sqlinline.QMarkGenerationProcessing,
		"QSetGenerationProgress":    sqlinline.QSetGenerationProgress,
		"QCompleteGeneration":       sqlinline.QCompleteGeneration,
		"QFailGeneration":           sqlinline.QFailGeneration,
		"QClaimSweepBatch":          sqlinline.QClaimSweepBatch,
		"QDeleteTerminalGeneration": sqlinline.QDeleteTerminalGeneration,
		"QPurgeFailedGenerations":   sqlinline.QPurgeFailedGenerations,
	}
	seen := make(map[string]string, len(statements))
	for name, q := range statements {
		marker, _, err := extractMarker(q)
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if prev, dup := seen[marker]; dup {
			t.Errorf("%s and %s share marker %s", name, prev, marker)
		}
		seen[marker] = name
	}
}
