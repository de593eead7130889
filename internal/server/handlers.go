package server

import (
	"encoding/json"
	"fmt"
	"image"
	"strings"

	"github.com/ironsheep/pixelart/internal/imaging"
	"github.com/ironsheep/pixelart/internal/stroke"
	"github.com/ironsheep/pixelart/internal/workspace"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "pixel_pixelate").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.logger.Info("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Loads images from cache or uses the workspace
//  4. Calls the appropriate imaging or workspace function
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	// Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "image_sample_color":
		return s.handleImageSampleColor(args)
	case "image_dominant_colors":
		return s.handleImageDominantColors(args)
	case "image_suggest_background":
		return s.handleImageSuggestBackground(args)

	// Pixel Pipeline
	case "pixel_pixelate":
		return s.handlePixelPixelate(args)
	case "pixel_resize":
		return s.handlePixelResize(args)
	case "pixel_key_background":
		return s.handlePixelKeyBackground(args)
	case "pixel_quantize":
		return s.handlePixelQuantize(args)
	case "pixel_psnr":
		return s.handlePixelPSNR(args)
	case "pixel_grid_overlay":
		return s.handlePixelGridOverlay(args)

	// Workspace
	case "workspace_open":
		return s.handleWorkspaceOpen(args)
	case "workspace_set_params":
		return s.handleWorkspaceSetParams(args)
	case "workspace_stroke":
		return s.handleWorkspaceStroke(args)
	case "workspace_undo":
		return s.handleWorkspaceUndo(args)
	case "workspace_status":
		return s.handleWorkspaceStatus(args)
	case "workspace_save":
		return s.handleWorkspaceSave(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

type imageSampleColorArgs struct {
	Path string `json:"path"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

func (s *Server) handleImageSampleColor(args json.RawMessage) (interface{}, error) {
	var a imageSampleColorArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.SampleColor(img, a.X, a.Y)
}

type imageDominantColorsArgs struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

func (s *Server) handleImageDominantColors(args json.RawMessage) (interface{}, error) {
	var a imageDominantColorsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Count == 0 {
		a.Count = 5
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.DominantColors(img, a.Count)
}

func (s *Server) handleImageSuggestBackground(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	c, err := imaging.SuggestBackground(img)
	if err != nil {
		return nil, err
	}
	return imaging.NewColorResult(c), nil
}

// === Pixel Pipeline Handlers ===

type pixelPixelateArgs struct {
	Path       string `json:"path"`
	BlockSize  int    `json:"block_size"`
	OutputPath string `json:"output_path"`
}

func (s *Server) handlePixelPixelate(args json.RawMessage) (interface{}, error) {
	var a pixelPixelateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	out, err := imaging.Pixelate(img, a.BlockSize)
	if err != nil {
		return nil, err
	}
	return imaging.NewImageResult(out, a.OutputPath)
}

type pixelResizeArgs struct {
	Path       string `json:"path"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Filter     string `json:"filter"`
	OutputPath string `json:"output_path"`
}

func (s *Server) handlePixelResize(args json.RawMessage) (interface{}, error) {
	var a pixelResizeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	filter, err := imaging.ParseFilter(a.Filter)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	// A missing dimension keeps the aspect ratio.
	b := img.Bounds()
	switch {
	case a.Width > 0 && a.Height == 0:
		a.Height = imaging.AspectLockedHeight(b.Dx(), b.Dy(), a.Width)
	case a.Height > 0 && a.Width == 0:
		a.Width = imaging.AspectLockedWidth(b.Dx(), b.Dy(), a.Height)
	}

	out, err := imaging.Resize(img, a.Width, a.Height, filter)
	if err != nil {
		return nil, err
	}
	return imaging.NewImageResult(out, a.OutputPath)
}

type pixelKeyBackgroundArgs struct {
	Path       string  `json:"path"`
	Background string  `json:"background"`
	Tolerance  int     `json:"tolerance"`
	Feather    float64 `json:"feather"`
	OutputPath string  `json:"output_path"`
}

func (s *Server) handlePixelKeyBackground(args json.RawMessage) (interface{}, error) {
	var a pixelKeyBackgroundArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	var bg = imaging.DefaultBackground
	if strings.EqualFold(a.Background, "auto") {
		if bg, err = imaging.SuggestBackground(img); err != nil {
			return nil, err
		}
	} else if bg, err = imaging.ParseColor(a.Background); err != nil {
		return nil, err
	}

	out, err := imaging.KeyBackground(img, bg, a.Tolerance)
	if err != nil {
		return nil, err
	}
	if a.Feather != 0 {
		if out, err = imaging.Feather(out, a.Feather); err != nil {
			return nil, err
		}
	}
	return imaging.NewImageResult(out, a.OutputPath)
}

type pixelQuantizeArgs struct {
	Path       string `json:"path"`
	Colors     int    `json:"colors"`
	OutputPath string `json:"output_path"`
}

func (s *Server) handlePixelQuantize(args json.RawMessage) (interface{}, error) {
	var a pixelQuantizeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Colors == 0 {
		a.Colors = 16
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	out, err := imaging.QuantizePalette(img, a.Colors)
	if err != nil {
		return nil, err
	}
	return imaging.NewImageResult(out, a.OutputPath)
}

type pixelPSNRArgs struct {
	Reference string `json:"reference"`
	Candidate string `json:"candidate"`
}

func (s *Server) handlePixelPSNR(args json.RawMessage) (interface{}, error) {
	var a pixelPSNRArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	ref, err := s.cache.Load(a.Reference)
	if err != nil {
		return nil, err
	}
	cand, err := s.cache.Load(a.Candidate)
	if err != nil {
		return nil, err
	}
	return imaging.CompareQuality(ref, cand)
}

type pixelGridOverlayArgs struct {
	Path        string `json:"path"`
	BlockSize   int    `json:"block_size"`
	ShowIndices bool   `json:"show_indices"`
	GridColor   string `json:"grid_color"`
	OutputPath  string `json:"output_path"`
}

func (s *Server) handlePixelGridOverlay(args json.RawMessage) (interface{}, error) {
	var a pixelGridOverlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.BlockSize == 0 {
		a.BlockSize = 8
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	out, err := imaging.BlockGridOverlay(img, a.BlockSize, a.ShowIndices, a.GridColor)
	if err != nil {
		return nil, err
	}
	return imaging.NewImageResult(out, a.OutputPath)
}

// === Workspace Handlers ===

func (s *Server) handleWorkspaceOpen(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := s.workspace.Open(a.Path); err != nil {
		return nil, err
	}
	return s.workspace.Status(), nil
}

// workspaceSetParamsArgs uses pointers so that omitted fields keep their
// current value.
type workspaceSetParamsArgs struct {
	BlockSize     *int     `json:"block_size"`
	Width         *int     `json:"width"`
	Height        *int     `json:"height"`
	LockAspect    *bool    `json:"lock_aspect"`
	ResetSize     bool     `json:"reset_size"`
	Background    *string  `json:"background"`
	Tolerance     *int     `json:"tolerance"`
	Keying        *bool    `json:"keying"`
	Feather       *float64 `json:"feather"`
	PaletteColors *int     `json:"palette_colors"`
	Filter        *string  `json:"filter"`
	Wait          *bool    `json:"wait"`
}

func (s *Server) handleWorkspaceSetParams(args json.RawMessage) (interface{}, error) {
	var a workspaceSetParamsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	ws := s.workspace

	if a.LockAspect != nil {
		ws.SetAspectLock(*a.LockAspect)
	}
	if a.BlockSize != nil {
		if err := ws.SetBlockSize(*a.BlockSize); err != nil {
			return nil, err
		}
	}
	switch {
	case a.Width != nil && a.Height != nil:
		if err := ws.SetTargetSize(*a.Width, *a.Height); err != nil {
			return nil, err
		}
	case a.Width != nil:
		if err := ws.SetTargetWidth(*a.Width); err != nil {
			return nil, err
		}
	case a.Height != nil:
		if err := ws.SetTargetHeight(*a.Height); err != nil {
			return nil, err
		}
	}

	// Size changes must land before a reset or a rebuild reads them.
	if a.Wait == nil || *a.Wait {
		ws.Flush()
	}
	if a.ResetSize {
		if err := ws.ResetSize(); err != nil {
			return nil, err
		}
	}

	if a.Background != nil {
		c, err := imaging.ParseColor(*a.Background)
		if err != nil {
			return nil, err
		}
		if err := ws.SetBackground(c); err != nil {
			return nil, err
		}
	}
	if a.Tolerance != nil {
		if err := ws.SetTolerance(*a.Tolerance); err != nil {
			return nil, err
		}
	}
	if a.Keying != nil {
		if err := ws.SetKeying(*a.Keying); err != nil {
			return nil, err
		}
	}
	if a.Feather != nil {
		if err := ws.SetFeather(*a.Feather); err != nil {
			return nil, err
		}
	}
	if a.PaletteColors != nil {
		if err := ws.SetPaletteColors(*a.PaletteColors); err != nil {
			return nil, err
		}
	}
	if a.Filter != nil {
		f, err := imaging.ParseFilter(*a.Filter)
		if err != nil {
			return nil, err
		}
		if err := ws.SetFilter(f); err != nil {
			return nil, err
		}
	}

	return ws.Status(), nil
}

type point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type workspaceStrokeArgs struct {
	Mode   string  `json:"mode"`
	Width  float64 `json:"width"`
	Points []point `json:"points"`
	Commit bool    `json:"commit"`
}

type workspaceStrokeResult struct {
	SegmentsDrawn int              `json:"segments_drawn"`
	Status        workspace.Status `json:"status"`
}

func (s *Server) handleWorkspaceStroke(args json.RawMessage) (interface{}, error) {
	var a workspaceStrokeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	mode, err := stroke.ParseMode(a.Mode)
	if err != nil {
		return nil, err
	}

	points := make([]image.Point, len(a.Points))
	for i, p := range a.Points {
		points[i] = image.Pt(p.X, p.Y)
	}

	s.workspace.Flush()
	drawn, err := s.workspace.Stroke(mode, a.Width, points)
	if err != nil {
		return nil, err
	}
	if a.Commit {
		if err := s.workspace.EndManual(); err != nil {
			return nil, err
		}
	}
	return &workspaceStrokeResult{SegmentsDrawn: drawn, Status: s.workspace.Status()}, nil
}

type workspaceUndoResult struct {
	Undone bool             `json:"undone"`
	Status workspace.Status `json:"status"`
}

func (s *Server) handleWorkspaceUndo(args json.RawMessage) (interface{}, error) {
	undone, err := s.workspace.Undo()
	if err != nil {
		return nil, err
	}
	return &workspaceUndoResult{Undone: undone, Status: s.workspace.Status()}, nil
}

type workspaceStatusArgs struct {
	IncludeImage   bool `json:"include_image"`
	IncludeQuality bool `json:"include_quality"`
}

type workspaceStatusResult struct {
	workspace.Status
	Quality *imaging.QualityReport `json:"quality,omitempty"`
	Image   *imaging.ImageResult   `json:"image,omitempty"`
}

func (s *Server) handleWorkspaceStatus(args json.RawMessage) (interface{}, error) {
	var a workspaceStatusArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	result := &workspaceStatusResult{Status: s.workspace.Status()}
	if !result.Open {
		return result, nil
	}
	if a.IncludeQuality {
		q, err := s.workspace.Quality()
		if err != nil {
			return nil, err
		}
		result.Quality = q
	}
	if a.IncludeImage {
		img, err := s.workspace.Result()
		if err != nil {
			return nil, err
		}
		if result.Image, err = imaging.NewImageResult(img, ""); err != nil {
			return nil, err
		}
	}
	return result, nil
}

type workspaceSaveResult struct {
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (s *Server) handleWorkspaceSave(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	s.workspace.Flush()
	path, err := s.workspace.Save(a.Path)
	if err != nil {
		return nil, err
	}
	st := s.workspace.Status()
	return &workspaceSaveResult{Path: path, Width: st.ResultWidth, Height: st.ResultHeight}, nil
}
