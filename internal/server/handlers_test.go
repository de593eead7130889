package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// createTestImageFile writes a PNG of the given color into a temp dir and
// returns its path.
func createTestImageFile(t *testing.T, width, height int, c color.Color) string {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return writePNG(t, img)
}

// createSpriteFile writes an 8x8 white image with a 4x4 red square in the
// middle.
func createSpriteFile(t *testing.T) string {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			c := color.NRGBA{255, 255, 255, 255}
			if x >= 2 && x < 6 && y >= 2 && y < 6 {
				c = color.NRGBA{255, 0, 0, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return writePNG(t, img)
}

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "handler-test-*.png")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return f.Name()
}

func callRequest(t *testing.T, name string, args interface{}) *MCPRequest {
	t.Helper()
	params, err := json.Marshal(map[string]interface{}{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	return &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params}
}

// callTool runs a tool through handleToolsCall and decodes the text content
// of a successful result.
func callTool(t *testing.T, s *Server, name string, args interface{}) map[string]interface{} {
	t.Helper()

	resp := s.handleToolsCall(callRequest(t, name, args))
	if resp.Error != nil {
		t.Fatalf("%s: unexpected error: %+v", name, resp.Error)
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("%s: result should be a map", name)
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("%s: expected one content item, got %v", name, result["content"])
	}
	if content[0]["type"] != "text" {
		t.Errorf("%s: content type %v, want text", name, content[0]["type"])
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), &decoded); err != nil {
		t.Fatalf("%s: decode content: %v", name, err)
	}
	return decoded
}

// callToolError runs a tool that is expected to fail and returns the error
// detail string.
func callToolError(t *testing.T, s *Server, name string, args interface{}) string {
	t.Helper()

	resp := s.handleToolsCall(callRequest(t, name, args))
	if resp.Error == nil {
		t.Fatalf("%s: expected an error, got %v", name, resp.Result)
	}
	if resp.Error.Code != -32000 {
		t.Errorf("%s: error code %d, want -32000", name, resp.Error.Code)
	}
	data, _ := resp.Error.Data.(string)
	return data
}

func decodeResultImage(t *testing.T, result map[string]interface{}) image.Image {
	t.Helper()

	if result["mime_type"] != "image/png" {
		t.Fatalf("mime_type: got %v, want image/png", result["mime_type"])
	}
	raw, err := base64.StdEncoding.DecodeString(result["image_base64"].(string))
	if err != nil {
		t.Fatalf("base64 decode: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("png decode: %v", err)
	}
	return img
}

func alphaAt(img image.Image, x, y int) uint8 {
	b := img.Bounds()
	return color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA).A
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 100, 80, color.RGBA{255, 0, 0, 255})

	info := callTool(t, s, "image_load", map[string]interface{}{"path": imgPath})

	if info["width"] != float64(100) || info["height"] != float64(80) {
		t.Errorf("size: got %vx%v, want 100x80", info["width"], info["height"])
	}
	if info["format"] != "png" {
		t.Errorf("format: got %v, want png", info["format"])
	}
	if info["suffix"] != "png" {
		t.Errorf("suffix: got %v, want png", info["suffix"])
	}
}

func TestHandleToolsCall_ImageDimensions(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 200, 150, color.RGBA{0, 255, 0, 255})

	dims := callTool(t, s, "image_dimensions", map[string]interface{}{"path": imgPath})

	if dims["width"] != float64(200) || dims["height"] != float64(150) {
		t.Errorf("got %vx%v, want 200x150", dims["width"], dims["height"])
	}
}

func TestHandleToolsCall_NonExistentFile(t *testing.T) {
	s := newTestServer(t)

	data := callToolError(t, s, "image_load", map[string]interface{}{"path": "/nonexistent/image.png"})
	if !strings.Contains(data, "image i/o failure") {
		t.Errorf("error data %q should name the i/o failure", data)
	}
}

func TestHandleToolsCall_InvalidTool(t *testing.T) {
	s := newTestServer(t)

	data := callToolError(t, s, "nonexistent_tool", map[string]interface{}{})
	if !strings.Contains(data, "unknown tool") {
		t.Errorf("error data %q should mention unknown tool", data)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t)

	resp := s.handleToolsCall(&MCPRequest{JSONRPC: "2.0", ID: 1, Params: json.RawMessage(`"not an object"`)})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("got %+v, want -32602", resp.Error)
	}
}

func TestHandleToolsCall_MissingArguments(t *testing.T) {
	s := newTestServer(t)

	// workspace_status takes no required arguments.
	resp := s.handleToolsCall(&MCPRequest{JSONRPC: "2.0", ID: 1, Params: json.RawMessage(`{"name":"workspace_status"}`)})
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
}

func TestHandleToolsCall_SampleColor(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 10, 10, color.RGBA{255, 0, 0, 255})

	c := callTool(t, s, "image_sample_color", map[string]interface{}{"path": imgPath, "x": 5, "y": 5})
	if c["hex"] != "#FF0000" {
		t.Errorf("hex: got %v, want #FF0000", c["hex"])
	}

	data := callToolError(t, s, "image_sample_color", map[string]interface{}{"path": imgPath, "x": 10, "y": 0})
	if !strings.Contains(data, "invalid parameter") {
		t.Errorf("out of bounds error %q should be an invalid parameter", data)
	}
}

func TestHandleToolsCall_DominantColors(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 50, 50, color.RGBA{128, 128, 128, 255})

	result := callTool(t, s, "image_dominant_colors", map[string]interface{}{"path": imgPath})

	colors, ok := result["colors"].([]interface{})
	if !ok || len(colors) == 0 || len(colors) > 5 {
		t.Fatalf("expected 1-5 colors with the default count, got %v", result["colors"])
	}
	if first := colors[0].(map[string]interface{}); first["hex"] != "#808080" {
		t.Errorf("dominant color: got %v, want #808080", first["hex"])
	}
}

func TestHandleToolsCall_SuggestBackground(t *testing.T) {
	s := newTestServer(t)

	c := callTool(t, s, "image_suggest_background", map[string]interface{}{"path": createSpriteFile(t)})
	if c["hex"] != "#FFFFFF" {
		t.Errorf("hex: got %v, want #FFFFFF", c["hex"])
	}
}

func TestHandleToolsCall_Pixelate(t *testing.T) {
	s := newTestServer(t)
	imgPath := createSpriteFile(t)

	result := callTool(t, s, "pixel_pixelate", map[string]interface{}{"path": imgPath, "block_size": 4})
	img := decodeResultImage(t, result)
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 8 {
		t.Errorf("pixelate must keep the size, got %v", img.Bounds())
	}

	// Each 4x4 block holds 4 red and 12 white pixels: G = 12*255/16 = 191.
	got := color.NRGBAModel.Convert(img.At(0, 0)).(color.NRGBA)
	if want := (color.NRGBA{255, 191, 191, 255}); got != want {
		t.Errorf("block color: got %v, want %v", got, want)
	}
}

func TestHandleToolsCall_Pixelate_OutputPath(t *testing.T) {
	s := newTestServer(t)
	out := filepath.Join(t.TempDir(), "pixelated.bmp")

	result := callTool(t, s, "pixel_pixelate", map[string]interface{}{
		"path":        createSpriteFile(t),
		"block_size":  2,
		"output_path": out,
	})

	if result["output_path"] != out {
		t.Errorf("output_path: got %v, want %s", result["output_path"], out)
	}
	if _, ok := result["image_base64"]; ok {
		t.Error("image_base64 should be omitted when writing to a file")
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output file not written: %v", err)
	}
}

func TestHandleToolsCall_Pixelate_InvalidBlockSize(t *testing.T) {
	s := newTestServer(t)

	data := callToolError(t, s, "pixel_pixelate", map[string]interface{}{"path": createSpriteFile(t), "block_size": 0})
	if !strings.Contains(data, "invalid parameter") {
		t.Errorf("error data %q should be an invalid parameter", data)
	}
}

func TestHandleToolsCall_Resize_AspectFromWidth(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 100, 80, color.RGBA{0, 0, 255, 255})

	result := callTool(t, s, "pixel_resize", map[string]interface{}{"path": imgPath, "width": 50, "filter": "nearest"})

	if result["width"] != float64(50) || result["height"] != float64(40) {
		t.Errorf("got %vx%v, want 50x40", result["width"], result["height"])
	}
}

func TestHandleToolsCall_Resize_UnknownFilter(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 10, 10, color.RGBA{0, 0, 255, 255})

	data := callToolError(t, s, "pixel_resize", map[string]interface{}{"path": imgPath, "width": 5, "filter": "bicubic"})
	if !strings.Contains(data, "invalid parameter") {
		t.Errorf("error data %q should be an invalid parameter", data)
	}
}

func TestHandleToolsCall_KeyBackground(t *testing.T) {
	s := newTestServer(t)
	imgPath := createSpriteFile(t)

	for _, bg := range []string{"#FFFFFF", "auto"} {
		t.Run(bg, func(t *testing.T) {
			result := callTool(t, s, "pixel_key_background", map[string]interface{}{
				"path":       imgPath,
				"background": bg,
				"tolerance":  10,
			})
			img := decodeResultImage(t, result)
			if a := alphaAt(img, 0, 0); a != 0 {
				t.Errorf("background alpha: got %d, want 0", a)
			}
			if a := alphaAt(img, 3, 3); a != 255 {
				t.Errorf("foreground alpha: got %d, want 255", a)
			}
		})
	}
}

func TestHandleToolsCall_KeyBackground_ZeroTolerance(t *testing.T) {
	s := newTestServer(t)

	result := callTool(t, s, "pixel_key_background", map[string]interface{}{
		"path":      createSpriteFile(t),
		"tolerance": 0,
	})
	img := decodeResultImage(t, result)
	if a := alphaAt(img, 0, 0); a != 255 {
		t.Errorf("tolerance 0 must key nothing, alpha got %d", a)
	}
}

func TestHandleToolsCall_Quantize(t *testing.T) {
	s := newTestServer(t)

	result := callTool(t, s, "pixel_quantize", map[string]interface{}{"path": createSpriteFile(t), "colors": 2})
	img := decodeResultImage(t, result)

	seen := make(map[color.NRGBA]bool)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			seen[color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)] = true
		}
	}
	if len(seen) > 2 {
		t.Errorf("quantized to 2 colors but found %d", len(seen))
	}
}

func TestHandleToolsCall_PSNR(t *testing.T) {
	s := newTestServer(t)
	a := createSpriteFile(t)
	b := createSpriteFile(t)

	report := callTool(t, s, "pixel_psnr", map[string]interface{}{"reference": a, "candidate": b})
	if report["identical"] != true {
		t.Errorf("identical: got %v, want true", report["identical"])
	}
	if report["psnr"] != nil {
		t.Errorf("psnr of identical images: got %v, want null", report["psnr"])
	}
}

func TestHandleToolsCall_PSNR_DimensionMismatch(t *testing.T) {
	s := newTestServer(t)
	a := createTestImageFile(t, 10, 10, color.RGBA{0, 0, 0, 255})
	b := createTestImageFile(t, 10, 11, color.RGBA{0, 0, 0, 255})

	data := callToolError(t, s, "pixel_psnr", map[string]interface{}{"reference": a, "candidate": b})
	if !strings.Contains(data, "dimension mismatch") {
		t.Errorf("error data %q should be a dimension mismatch", data)
	}
}

func TestHandleToolsCall_GridOverlay(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 32, 32, color.RGBA{0, 0, 0, 255})

	result := callTool(t, s, "pixel_grid_overlay", map[string]interface{}{"path": imgPath})
	img := decodeResultImage(t, result)

	// Default block size is 8 and default color magenta.
	got := color.NRGBAModel.Convert(img.At(8, 3)).(color.NRGBA)
	if want := (color.NRGBA{255, 0, 255, 255}); got != want {
		t.Errorf("grid line color: got %v, want %v", got, want)
	}
}

func TestHandleToolsCall_Workspace(t *testing.T) {
	s := newTestServer(t)
	imgPath := createSpriteFile(t)

	status := callTool(t, s, "workspace_open", map[string]interface{}{"path": imgPath})
	if status["open"] != true || status["result_width"] != float64(8) {
		t.Fatalf("open status: %v", status)
	}

	status = callTool(t, s, "workspace_set_params", map[string]interface{}{
		"keying":     true,
		"background": "#FFFFFF",
		"tolerance":  10,
	})
	if status["keying"] != true || status["tolerance"] != float64(10) {
		t.Errorf("params not applied: %v", status)
	}

	img := decodeResultImage(t, callTool(t, s, "workspace_status", map[string]interface{}{"include_image": true})["image"].(map[string]interface{}))
	if a := alphaAt(img, 0, 0); a != 0 {
		t.Errorf("keyed background alpha: got %d, want 0", a)
	}
	if a := alphaAt(img, 4, 4); a != 255 {
		t.Errorf("foreground alpha before stroke: got %d, want 255", a)
	}

	stroked := callTool(t, s, "workspace_stroke", map[string]interface{}{
		"mode":   "pen",
		"width":  4,
		"points": []map[string]int{{"x": 4, "y": 4}},
	})
	if stroked["segments_drawn"] != float64(1) {
		t.Errorf("segments_drawn: got %v, want 1", stroked["segments_drawn"])
	}
	img = decodeResultImage(t, callTool(t, s, "workspace_status", map[string]interface{}{"include_image": true})["image"].(map[string]interface{}))
	if a := alphaAt(img, 4, 4); a != 0 {
		t.Errorf("painted alpha: got %d, want 0", a)
	}

	undone := callTool(t, s, "workspace_undo", nil)
	if undone["undone"] != true {
		t.Errorf("undone: got %v, want true", undone["undone"])
	}
	img = decodeResultImage(t, callTool(t, s, "workspace_status", map[string]interface{}{"include_image": true})["image"].(map[string]interface{}))
	if a := alphaAt(img, 4, 4); a != 255 {
		t.Errorf("alpha after undo: got %d, want 255", a)
	}

	out := filepath.Join(t.TempDir(), "sprite")
	saved := callTool(t, s, "workspace_save", map[string]interface{}{"path": out})
	if saved["path"] != out+".png" {
		t.Errorf("saved path: got %v, want %s.png", saved["path"], out)
	}
	if _, err := os.Stat(out + ".png"); err != nil {
		t.Errorf("saved file missing: %v", err)
	}
}

func TestHandleToolsCall_Workspace_AspectLockedWidth(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 20, 10, color.RGBA{0, 0, 255, 255})

	callTool(t, s, "workspace_open", map[string]interface{}{"path": imgPath})
	status := callTool(t, s, "workspace_set_params", map[string]interface{}{
		"lock_aspect": true,
		"width":       10,
	})

	if status["result_width"] != float64(10) || status["result_height"] != float64(5) {
		t.Errorf("result size: got %vx%v, want 10x5", status["result_width"], status["result_height"])
	}
	if status["pending_target_size"] != false {
		t.Error("wait defaults to true, nothing should be pending")
	}
}

func TestHandleToolsCall_Workspace_Quality(t *testing.T) {
	s := newTestServer(t)

	callTool(t, s, "workspace_open", map[string]interface{}{"path": createSpriteFile(t)})
	status := callTool(t, s, "workspace_status", map[string]interface{}{"include_quality": true})

	quality, ok := status["quality"].(map[string]interface{})
	if !ok {
		t.Fatalf("quality missing: %v", status)
	}
	// Block size 1 at the source size reproduces the source.
	if quality["identical"] != true {
		t.Errorf("identical: got %v, want true", quality["identical"])
	}
}

func TestHandleToolsCall_Workspace_NoImage(t *testing.T) {
	s := newTestServer(t)

	status := callTool(t, s, "workspace_status", map[string]interface{}{"include_image": true})
	if status["open"] != false {
		t.Errorf("open: got %v, want false", status["open"])
	}
	if _, ok := status["image"]; ok {
		t.Error("no image should be returned before workspace_open")
	}

	callToolError(t, s, "workspace_stroke", map[string]interface{}{
		"mode":   "paint",
		"points": []map[string]int{{"x": 1, "y": 1}},
	})
	callToolError(t, s, "workspace_undo", nil)
}

func TestExecuteTool_UnknownTool(t *testing.T) {
	s := newTestServer(t)

	if _, err := s.executeTool("unknown_tool", json.RawMessage(`{}`)); err == nil {
		t.Error("executeTool should fail for unknown tool")
	}
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := newTestServer(t)

	if _, err := s.executeTool("image_load", json.RawMessage(`{invalid`)); err == nil {
		t.Error("executeTool should fail for invalid JSON")
	}
}
