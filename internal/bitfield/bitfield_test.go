package bitfield

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type flags struct {
	Allocated  bool   `bitfield:",1"`
	KernelPage bool   `bitfield:",1"`
	Reserved   uint32 `bitfield:",30"`
}

func TestPackSetsExpectedBits(t *testing.T) {
	packed, err := Pack(flags{Allocated: true, KernelPage: false, Reserved: 0}, &Config{NumBits: 32})
	require.NoError(t, err)
	require.Equal(t, uint64(0x1), packed)

	packed, err = Pack(flags{Allocated: true, KernelPage: true}, &Config{NumBits: 32})
	require.NoError(t, err)
	require.Equal(t, uint64(0x3), packed)
}

func TestUnpackRecoversFields(t *testing.T) {
	var f flags
	require.NoError(t, Unpack(0x3, &f))
	require.True(t, f.Allocated)
	require.True(t, f.KernelPage)
	require.Equal(t, uint32(0), f.Reserved)
}

func TestPackUnpackRoundTrip(t *testing.T) {
	want := flags{Allocated: true, KernelPage: false, Reserved: 0x1234}
	packed, err := Pack(want, &Config{NumBits: 32})
	require.NoError(t, err)

	var got flags
	require.NoError(t, Unpack(packed, &got))
	require.Equal(t, want, got)
}

func TestPackRejectsOverflowingField(t *testing.T) {
	_, err := Pack(flags{Reserved: 1 << 30}, &Config{NumBits: 32})
	require.Error(t, err)
}

func TestUnpackRequiresPointerToStruct(t *testing.T) {
	var f flags
	require.Error(t, Unpack(0, f))
}
