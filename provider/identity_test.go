package provider

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeIdentity(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantID   string
		wantName string
		wantErr  bool
	}{
		{name: "string id", body: `{"id":"42","name":"alice"}`, wantID: "42", wantName: "alice"},
		{name: "numeric id", body: `{"id":123456789012,"username":"bob"}`, wantID: "123456789012", wantName: "bob"},
		{name: "first name fallback", body: `{"id":1,"first_name":"Carol"}`, wantID: "1", wantName: "Carol"},
		{name: "name wins", body: `{"id":1,"name":"n","username":"u"}`, wantID: "1", wantName: "n"},
		{name: "missing id", body: `{"name":"alice"}`, wantErr: true},
		{name: "null id", body: `{"id":null,"name":"alice"}`, wantErr: true},
		{name: "empty id", body: `{"id":" ","name":"alice"}`, wantErr: true},
		{name: "object id", body: `{"id":{},"name":"alice"}`, wantErr: true},
		{name: "missing name", body: `{"id":"1"}`, wantErr: true},
		{name: "not json", body: `<html>`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, name, err := decodeIdentity([]byte(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantID, id)
			require.Equal(t, tt.wantName, name)
		})
	}
}
