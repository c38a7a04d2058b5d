package mesh

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeaconRoundTrip(t *testing.T) {
	b := BeaconPayload{
		DeviceID:  uuid.New(),
		Name:      "node-a",
		Timestamp: time.Unix(1700000000, 0),
		Sequence:  42,
	}

	decoded, err := DecodeBeaconPayload(b.Encode())
	require.NoError(t, err)
	assert.Equal(t, b.DeviceID, decoded.DeviceID)
	assert.Equal(t, b.Name, decoded.Name)
	assert.Equal(t, b.Sequence, decoded.Sequence)
	assert.Equal(t, b.Timestamp.UnixNano(), decoded.Timestamp.UnixNano())
}

func TestDecodeBeaconPayloadTooShort(t *testing.T) {
	_, err := DecodeBeaconPayload([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrBeaconTooShort)
}

func TestDiscoveryOnBeaconTracksPeer(t *testing.T) {
	d := NewDiscovery(time.Minute)
	id := uuid.New()

	b := BeaconPayload{DeviceID: id, Name: "node-b", Timestamp: time.Now(), Sequence: 1}
	d.OnBeacon(b.Encode(), id)

	assert.True(t, d.Has(id))
	assert.Equal(t, 1, d.Count())

	peers := d.Peers()
	require.Len(t, peers, 1)
	assert.Equal(t, "node-b", peers[0].Name)
	assert.Equal(t, 1, peers[0].BeaconCount)
}

func TestDiscoveryIgnoresStaleSequence(t *testing.T) {
	d := NewDiscovery(time.Minute)
	id := uuid.New()

	d.OnBeacon(BeaconPayload{DeviceID: id, Sequence: 5}.Encode(), id)
	d.OnBeacon(BeaconPayload{DeviceID: id, Sequence: 3}.Encode(), id)

	peers := d.Peers()
	require.Len(t, peers, 1)
	assert.Equal(t, 1, peers[0].BeaconCount)
	assert.Equal(t, uint32(5), peers[0].LastSequence)
}

func TestDiscoverySweepExpiresStalePeers(t *testing.T) {
	d := NewDiscovery(10 * time.Millisecond)
	id := uuid.New()
	d.OnBeacon(BeaconPayload{DeviceID: id}.Encode(), id)
	require.True(t, d.Has(id))

	d.Sweep(time.Now().Add(time.Hour))
	assert.False(t, d.Has(id))
}

func TestDirectRouterRoutesKnownPeers(t *testing.T) {
	d := NewDiscovery(time.Minute)
	router := NewDirectRouter(d)

	id := uuid.New()
	d.OnBeacon(BeaconPayload{DeviceID: id}.Encode(), id)

	hop, ok := router.Route(id)
	require.True(t, ok)
	assert.Equal(t, id, hop)

	_, ok = router.Route(uuid.New())
	assert.False(t, ok)
}
