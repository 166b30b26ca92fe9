package interfaces

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timeNonZero() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestNewDigestNormalizes(t *testing.T) {
	raw := "A665A45920422F9D417E4867EFDC4FB8A04A1F3FFF1FA07E998E86F7F7A27AE3"

	digest, err := NewDigest(raw)
	require.NoError(t, err)
	assert.Equal(t, Digest("0x"+strings.ToLower(raw)), digest)

	// Already-normalized input is a fixed point.
	again, err := NewDigest(string(digest))
	require.NoError(t, err)
	assert.Equal(t, digest, again)

	withPrefix, err := NewDigest("0X" + raw)
	require.NoError(t, err)
	assert.Equal(t, digest, withPrefix)

	padded, err := NewDigest("  " + raw + "\n")
	require.NoError(t, err)
	assert.Equal(t, digest, padded)
}

func TestNewDigestRejectsMalformed(t *testing.T) {
	for _, candidate := range []string{
		"",
		"0x",
		"0x1234",
		strings.Repeat("a", 64) + "aa",
		"0x" + strings.Repeat("g", 64),
		"0x" + strings.Repeat("a", 63),
	} {
		_, err := NewDigest(candidate)
		assert.ErrorIs(t, err, ErrInvalidHashFormat, "candidate %q", candidate)
	}
}

func TestHashBytesDeterministic(t *testing.T) {
	content := []byte("the same content")

	first := HashBytes(content)
	second := HashBytes(content)
	assert.Equal(t, first, second)
	assert.Len(t, string(first), DigestLength)
	assert.NoError(t, first.Validate())

	assert.NotEqual(t, first, HashBytes([]byte("different content")))
}

func TestHashReaderMatchesHashBytes(t *testing.T) {
	content := []byte("streamed content")

	fromReader, err := HashReader(bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, HashBytes(content), fromReader)
}

func TestDigestBytesRoundTrip(t *testing.T) {
	digest := HashBytes([]byte("round trip"))

	raw, err := digest.Bytes()
	require.NoError(t, err)
	assert.NotEqual(t, [32]byte{}, raw)

	_, err = Digest("0xzz").Bytes()
	assert.ErrorIs(t, err, ErrInvalidHashFormat)
}

func TestDeriveDocumentID(t *testing.T) {
	first := DeriveDocumentID("diploma-2026-001")
	second := DeriveDocumentID("diploma-2026-001")
	assert.Equal(t, first, second)
	assert.NotEqual(t, first, DeriveDocumentID("diploma-2026-002"))
	assert.NotEqual(t, [32]byte{}, first)
}

func TestRequestStatusTransitions(t *testing.T) {
	assert.True(t, RequestSubmitted.CanTransitionTo(RequestApproved))
	assert.True(t, RequestSubmitted.CanTransitionTo(RequestDenied))
	assert.True(t, RequestApproved.CanTransitionTo(RequestIssued))

	assert.False(t, RequestSubmitted.CanTransitionTo(RequestIssued))
	assert.False(t, RequestApproved.CanTransitionTo(RequestDenied))
	assert.False(t, RequestDenied.CanTransitionTo(RequestApproved))
	assert.False(t, RequestIssued.CanTransitionTo(RequestApproved))

	assert.True(t, RequestDenied.Terminal())
	assert.True(t, RequestIssued.Terminal())
	assert.False(t, RequestSubmitted.Terminal())

	assert.True(t, RequestApproved.Valid())
	assert.False(t, RequestStatus("bogus").Valid())
}

func TestIssuedBundleValidate(t *testing.T) {
	digest := HashBytes([]byte("bundle"))
	full := IssuedBundle{DocID: "d", DocHash: digest, TxHash: "0xabc", FileURL: "https://x/y.pdf", IssuedAt: timeNonZero()}
	assert.NoError(t, full.Validate())

	for _, bundle := range []IssuedBundle{
		{DocHash: digest, TxHash: "0xabc", FileURL: "u", IssuedAt: timeNonZero()},
		{DocID: "d", DocHash: digest, FileURL: "u", IssuedAt: timeNonZero()},
		{DocID: "d", DocHash: digest, TxHash: "0xabc", IssuedAt: timeNonZero()},
		{DocID: "d", DocHash: digest, TxHash: "0xabc", FileURL: "u"},
		{DocID: "d", DocHash: "0xnothex", TxHash: "0xabc", FileURL: "u", IssuedAt: timeNonZero()},
	} {
		assert.Error(t, bundle.Validate())
	}
}

func TestUserIsAdmin(t *testing.T) {
	assert.True(t, (&User{Role: RoleAdmin}).IsAdmin())
	assert.False(t, (&User{Role: "student"}).IsAdmin())
	var nobody *User
	assert.False(t, nobody.IsAdmin())
}
