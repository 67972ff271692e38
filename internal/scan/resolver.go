package scan

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alnkravchenko/tracking-bot/internal/imaging"
)

// ErrUnrecognized means no machine-readable code was found in the photo, or
// its payload did not parse. The caller recovers locally: the requester is
// asked to retry and the session continues unaffected.
var ErrUnrecognized = errors.New("no recognizable code in image")

// ErrNoCode is returned by Decoder implementations when the image contains
// no machine-readable code.
var ErrNoCode = errors.New("no code detected")

// Decoder extracts the text payload of a QR code from image bytes. The
// actual detection is an external primitive; this package only prepares the
// photo and interprets the payload.
type Decoder interface {
	Decode(ctx context.Context, image []byte) (string, error)
}

// Label payloads follow the convention "<equipment id> <equipment name>",
// space-separated, id first.

// ParsePayload extracts the equipment id from a label payload.
func ParsePayload(payload string) (int64, error) {
	fields := strings.Fields(payload)
	if len(fields) == 0 {
		return 0, ErrUnrecognized
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrUnrecognized
	}
	return id, nil
}

// FormatPayload produces the label text encoded into an item's QR code.
func FormatPayload(id int64, name string) string {
	return fmt.Sprintf("%d %s", id, name)
}

// Resolver turns a photo of an equipment label into an equipment id.
type Resolver struct {
	decoder Decoder
}

// NewResolver creates a resolver around an external decode primitive.
func NewResolver(decoder Decoder) *Resolver {
	return &Resolver{decoder: decoder}
}

// Resolve normalizes the photo, runs the decoder, and parses the payload.
// Every failure mode surfaces as ErrUnrecognized: the distinction between a
// bad photo, a missing code, and a garbled payload does not matter to the
// requester, who simply retries the scan.
func (r *Resolver) Resolve(ctx context.Context, photo []byte) (int64, error) {
	prepared, err := imaging.Prepare(photo)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnrecognized, err)
	}

	payload, err := r.decoder.Decode(ctx, prepared)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnrecognized, err)
	}

	return ParsePayload(payload)
}
