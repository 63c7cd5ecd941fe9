package models

import (
	"errors"

	"github.com/google/uuid"
)

var ErrShortFrame = errors.New("frame message too short")

// EncodeFrame builds a binary classification request: the 16 byte request id
// followed by the JPEG payload.
func EncodeFrame(id uuid.UUID, jpeg []byte) []byte {
	msg := make([]byte, 0, len(id)+len(jpeg))
	msg = append(msg, id[:]...)
	return append(msg, jpeg...)
}

func DecodeFrame(msg []byte) (uuid.UUID, []byte, error) {
	var id uuid.UUID
	if len(msg) <= len(id) {
		return id, nil, ErrShortFrame
	}

	copy(id[:], msg[:len(id)])

	return id, msg[len(id):], nil
}
