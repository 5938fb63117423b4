package vkdevice

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vulkan-go/vulkan"

	"presenter/src/render"
)

func TestNewError(t *testing.T) {
	require.NoError(t, NewError(vulkan.Success))
	assert.False(t, IsError(vulkan.Success))
	assert.True(t, IsError(vulkan.ErrorDeviceLost))

	err := NewError(vulkan.ErrorDeviceLost)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "errors_test.go")
	assert.Contains(t, err.Error(), "TestNewError")
}

func TestOrPanicRecovers(t *testing.T) {
	ran := false
	run := func() (err error) {
		defer CheckError(&err)
		OrPanic(nil)
		OrPanic(render.ErrNoDepthFormat, func() { ran = true })
		return nil
	}
	err := run()
	require.ErrorIs(t, err, render.ErrNoDepthFormat)
	assert.True(t, ran)

	err = func() (err error) {
		defer CheckError(&err)
		panic("boom")
	}()
	require.EqualError(t, err, "boom")
}

func TestResultStatus(t *testing.T) {
	for _, tc := range []struct {
		ret    vulkan.Result
		status render.Status
		err    bool
	}{
		{vulkan.Success, render.StatusOK, false},
		{vulkan.Suboptimal, render.StatusSuboptimal, false},
		{vulkan.ErrorOutOfDate, render.StatusOutOfDate, false},
		{vulkan.ErrorSurfaceLost, render.StatusError, true},
	} {
		status, err := resultStatus(tc.ret)
		assert.Equal(t, tc.status, status)
		assert.Equal(t, tc.err, err != nil)
	}
}

func TestSafeStrings(t *testing.T) {
	assert.Equal(t, []string{"a\x00", "b\x00"}, safeStrings([]string{"a", "b\x00"}))
}

func TestForeignObjects(t *testing.T) {
	d := &Device{}
	_, err := d.CreateImageView(nil, render.FormatB8G8R8A8Srgb, render.AspectColor)
	assert.True(t, errors.Is(err, ErrForeignObject))
	_, err = semaphoreHandle(nil)
	assert.NoError(t, err)
	assert.Equal(t, vulkan.ImageAspectFlags(vulkan.ImageAspectDepthBit|vulkan.ImageAspectStencilBit),
		aspectFlags(render.AspectDepth, render.FormatD24UnormS8Uint))
}
