package mcpserver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termbridge/termbridge/internal/uiauto"
)

type fakeAutomator struct {
	point  uiauto.Point
	err    error
	typed  string
	target string
}

func (a *fakeAutomator) Click(_ context.Context, element string) (uiauto.Point, error) {
	a.target = element
	return a.point, a.err
}

func (a *fakeAutomator) Type(_ context.Context, element, text string) (uiauto.Point, error) {
	a.target = element
	a.typed = text
	return a.point, a.err
}

func (a *fakeAutomator) MousePosition(context.Context) (uiauto.Point, error) {
	return a.point, a.err
}

func TestUIClick_Success(t *testing.T) {
	auto := &fakeAutomator{point: uiauto.Point{X: 640, Y: 480}}
	handler := uiClickHandler(auto)

	res, err := handler(context.Background(), callRequest("ui_click", map[string]interface{}{
		"element_name": "login_button",
	}))
	require.NoError(t, err)

	body := decodeResult(t, res)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "login_button", body["element"])
	assert.Equal(t, float64(640), body["x"])
	assert.Equal(t, float64(480), body["y"])
	assert.Equal(t, "login_button", auto.target)
}

func TestUIClick_UnknownElement(t *testing.T) {
	auto := &fakeAutomator{err: errors.New(`unknown element "missing": add it to the coordinate map`)}
	handler := uiClickHandler(auto)

	res, err := handler(context.Background(), callRequest("ui_click", map[string]interface{}{
		"element_name": "missing",
	}))
	require.NoError(t, err)

	body := decodeResult(t, res)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "missing", body["element"])
	assert.Contains(t, body["error"], "unknown element")
	assert.NotContains(t, body, "x")
}

func TestUIClick_MissingArgument(t *testing.T) {
	handler := uiClickHandler(&fakeAutomator{})

	res, err := handler(context.Background(), callRequest("ui_click", nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestUIType_Success(t *testing.T) {
	auto := &fakeAutomator{point: uiauto.Point{X: 100, Y: 30}}
	handler := uiTypeHandler(auto)

	res, err := handler(context.Background(), callRequest("ui_type", map[string]interface{}{
		"element_name": "search_box",
		"text":    "hello",
	}))
	require.NoError(t, err)

	body := decodeResult(t, res)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "search_box", body["element"])
	assert.Equal(t, float64(5), body["typed_chars"])
	assert.Equal(t, "hello", auto.typed)
}

func TestUIType_DriverFailure(t *testing.T) {
	auto := &fakeAutomator{err: errors.New("no display")}
	handler := uiTypeHandler(auto)

	res, err := handler(context.Background(), callRequest("ui_type", map[string]interface{}{
		"element_name": "search_box",
		"text":    "hello",
	}))
	require.NoError(t, err)

	body := decodeResult(t, res)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, false, body["success"])
	assert.NotContains(t, body, "typed_chars")
}

func TestUIGetMousePosition(t *testing.T) {
	auto := &fakeAutomator{point: uiauto.Point{X: 12, Y: 34}}
	handler := uiMousePositionHandler(auto)

	res, err := handler(context.Background(), callRequest("ui_get_mouse_position", nil))
	require.NoError(t, err)

	body := decodeResult(t, res)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, float64(12), body["x"])
	assert.Equal(t, float64(34), body["y"])
}
