/*
NAME
	decode_test.go

DESCRIPTION
  decode_test.go provides utilities to test FLAC audio decoding.

AUTHOR
  Saxon Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package flac

import "testing"

// TestDecodeBadInput checks that malformed FLAC is rejected rather than
// producing a bogus buffer.
func TestDecodeBadInput(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
	}{
		{name: "empty", in: nil},
		{name: "not flac", in: []byte("RIFF....WAVE")},
		{name: "truncated marker", in: []byte("fLa")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.in); err == nil {
				t.Error("expected error for malformed FLAC, got nil")
			}
		})
	}
}
