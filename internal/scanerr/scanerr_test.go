package scanerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByKind(t *testing.T) {
	err := Newf(NetworkTimeout, "client.Scan", "no answer after %ds", 60)
	wrapped := fmt.Errorf("session abc: %w", err)

	assert.True(t, errors.Is(wrapped, ErrNetworkTimeout))
	assert.False(t, errors.Is(wrapped, ErrNetworkUnavailable))
	assert.Equal(t, NetworkTimeout, KindOf(wrapped))
	assert.Equal(t, "client.Scan: network_timeout: no answer after 60s", err.Error())
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Internal, KindOf(errors.New("boom")))
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := New(NetworkUnavailable, "client.do", cause)
	assert.ErrorIs(t, err, cause)
}

func TestPublicMessageHidesInternalDetail(t *testing.T) {
	internal := Newf(Internal, "client.Scan", "processing service returned status 500: stack trace at /srv/app.py:88")
	assert.Equal(t, InternalMessage, PublicMessage(internal))
	assert.Equal(t, InternalMessage, PublicMessage(errors.New("nil pointer")))

	pose := Newf(InvalidPose, "pose.Validate", "arms not visible")
	assert.Equal(t, "pose.Validate: invalid_pose: arms not visible", PublicMessage(pose))
}
