package render

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	for idx, tc := range []struct {
		err   error
		kind  Kind
		fatal bool
	}{
		{nil, KindTransient, false},
		{ErrOutOfDate, KindTransient, false},
		{fmt.Errorf("acquire: %w", ErrOutOfDate), KindTransient, false},
		{fmt.Errorf("present: %w", ErrSuboptimal), KindTransient, false},
		{ErrSurfaceIncompatible, KindConfiguration, true},
		{fmt.Errorf("rebuild: %w", ErrSwapFormatChanged), KindConfiguration, true},
		{ErrNoSurfaceFormat, KindConfiguration, true},
		{ErrNoDepthFormat, KindConfiguration, true},
		{fmt.Errorf("%w: bad", ErrInvalidConfig), KindConfiguration, true},
		{errors.New("device lost"), KindAPI, true},
		{ErrClosed, KindAPI, true},
	} {
		t.Run(fmt.Sprintf("%d/%v", idx, tc.err), func(t *testing.T) {
			require.Equal(t, tc.kind, KindOf(tc.err))
			require.Equal(t, tc.fatal, IsFatal(tc.err))
		})
	}
}

func TestStatusError(t *testing.T) {
	require.NoError(t, statusError("acquire", StatusOK, nil))
	require.ErrorIs(t, statusError("acquire", StatusOutOfDate, nil), ErrOutOfDate)
	require.ErrorIs(t, statusError("present", StatusSuboptimal, nil), ErrSuboptimal)

	err := statusError("present", StatusError, errFake)
	require.ErrorIs(t, err, errFake)
	require.EqualError(t, err, "present: fake: device lost")

	require.Error(t, statusError("present", StatusError, nil))
}

func TestStatusAndKindStrings(t *testing.T) {
	require.Equal(t, "ok", StatusOK.String())
	require.Equal(t, "out of date", StatusOutOfDate.String())
	require.Equal(t, "suboptimal", StatusSuboptimal.String())
	require.Equal(t, "error", StatusError.String())
	require.Equal(t, "status(9)", Status(9).String())

	require.Equal(t, "api", KindAPI.String())
	require.Equal(t, "transient", KindTransient.String())
	require.Equal(t, "configuration", KindConfiguration.String())
}

func TestExtent(t *testing.T) {
	for idx, tc := range []struct {
		e       Extent
		zero    bool
		defined bool
		ratio   float32
	}{
		{Extent{800, 600}, false, true, 800.0 / 600.0},
		{Extent{0, 600}, true, true, 0},
		{Extent{800, 0}, true, true, 0},
		{Extent{undefinedExtent, undefinedExtent}, false, false, 1},
	} {
		t.Run(fmt.Sprintf("%d/%dx%d", idx, tc.e.Width, tc.e.Height), func(t *testing.T) {
			require.Equal(t, tc.zero, tc.e.Zero())
			require.Equal(t, tc.defined, tc.e.Defined())
			require.InDelta(t, tc.ratio, tc.e.AspectRatio(), 1e-6)
		})
	}

	require.True(t, Extent{5, 5}.Within(Extent{1, 1}, Extent{5, 5}))
	require.False(t, Extent{6, 5}.Within(Extent{1, 1}, Extent{5, 5}))
	require.False(t, Extent{0, 5}.Within(Extent{1, 1}, Extent{5, 5}))
}

func TestFormatText(t *testing.T) {
	for _, f := range []Format{FormatB8G8R8A8Srgb, FormatD32Sfloat, FormatD24UnormS8Uint} {
		b, err := f.MarshalText()
		require.NoError(t, err)
		var got Format
		require.NoError(t, got.UnmarshalText(b))
		require.Equal(t, f, got)
	}
	require.Equal(t, "format(1000)", Format(1000).String())

	var f Format
	require.Error(t, f.UnmarshalText([]byte("rgb565")))
	require.True(t, FormatD32SfloatS8Uint.HasStencil())
	require.False(t, FormatD32Sfloat.HasStencil())

	m, ok := ParsePresentMode("fifo_relaxed")
	require.True(t, ok)
	require.Equal(t, PresentModeFifoRelaxed, m)
	var pm PresentMode
	require.Error(t, pm.UnmarshalText([]byte("vsync")))
}
