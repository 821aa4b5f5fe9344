package schedule

import (
	"testing"
	"time"

	"github.com/course-remind/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestIdentifier_Deterministic(t *testing.T) {
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, Identifier("c1", start), Identifier("c1", start))
	assert.NotEqual(t, Identifier("c1", start), Identifier("c2", start))
	assert.NotEqual(t, Identifier("c1", start), Identifier("c1", start.Add(time.Minute)))
}

func TestBelongsTo(t *testing.T) {
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	id := Identifier("c1", start)
	assert.True(t, BelongsTo(id, "c1"))
	assert.False(t, BelongsTo(id, "c2"))
	// "c" must not prefix-match "c1"'s identifiers the other way around.
	assert.False(t, BelongsTo(Identifier("c12", start), "c1"))
}

func TestChannelFor(t *testing.T) {
	assert.Equal(t, ChannelDefault, ChannelFor(domain.SoundDefault))
	assert.Equal(t, ChannelChime, ChannelFor(domain.SoundChime))
	assert.Equal(t, ChannelSilent, ChannelFor(domain.SoundSilent))
	assert.Equal(t, ChannelDefault, ChannelFor("something-else"))
}
