/*
NAME
  list.go

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package codecutil

import "strconv"

// All available codecs for reference in any application.
// When adding or removing a codec from this list, the IsValid and MimeType
// functions below must be updated.
const (
	PCM   = "pcm"
	DFPWM = "dfpwm"
)

// IsValid checks if a string is a known and valid codec in the right format.
func IsValid(s string) bool {
	switch s {
	case PCM, DFPWM:
		return true
	default:
		return false
	}
}

// MimeType returns the mime type string used to tag cloud blobs of the given
// codec at the given sample rate, or an empty string for unknown codecs.
func MimeType(codec string, rate int) string {
	switch codec {
	case PCM:
		return "audio/x-wav;codec=pcm;rate=" + strconv.Itoa(rate)
	case DFPWM:
		return "audio/dfpwm;rate=" + strconv.Itoa(rate)
	default:
		return ""
	}
}
