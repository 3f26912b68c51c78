package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/storm-plots-service/internal/pipeline"
)

func TestSummaryError(t *testing.T) {
	tests := []struct {
		name    string
		summary pipeline.Summary
		wantErr bool
	}{
		{name: "no active storms", summary: pipeline.Summary{}},
		{name: "every storm skipped", summary: pipeline.Summary{StormsSeen: 2, StormsSkipped: 2}},
		{name: "partial failure", summary: pipeline.Summary{StormsSeen: 1, ImagesWritten: 2, ImageFailures: 1}},
		{name: "every image failed", summary: pipeline.Summary{StormsSeen: 1, ImageFailures: 3}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := summaryError(tt.summary)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
