package session

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestIsIndexOptionsConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"conflict", mongo.CommandError{Code: 85, Name: "IndexOptionsConflict"}, true},
		{"wrapped conflict", fmt.Errorf("ensure index: %w", mongo.CommandError{Code: 85}), true},
		{"other command error", mongo.CommandError{Code: 11000, Name: "DuplicateKey"}, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isIndexOptionsConflict(tt.err))
		})
	}
}
