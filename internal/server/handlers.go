package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/google/uuid"

	"github.com/ironsheep/parkspot-mcp/internal/annotate"
	"github.com/ironsheep/parkspot-mcp/internal/detection"
	"github.com/ironsheep/parkspot-mcp/internal/geometry"
	"github.com/ironsheep/parkspot-mcp/internal/imaging"
	"github.com/ironsheep/parkspot-mcp/internal/occupancy"
	"github.com/ironsheep/parkspot-mcp/internal/pipeline"
	"github.com/ironsheep/parkspot-mcp/internal/zones"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "lot_occupancy").
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
	if len(params.Arguments) == 0 {
		params.Arguments = json.RawMessage("{}")
	}

	s.debugf("tools/call %s", params.Name)
	result, err := s.executeTool(context.Background(), params.Name, params.Arguments)
	if err != nil {
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
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Lot analysis
	case "lot_zones_load":
		return s.handleZonesLoad(args)
	case "lot_preprocess":
		return s.handlePreprocess(args)
	case "lot_detect":
		return s.handleDetect(ctx, args)
	case "lot_merge":
		return s.handleMerge(args)
	case "lot_cluster_points":
		return s.handleClusterPoints(args)
	case "lot_resolve":
		return s.handleResolve(args)
	case "lot_occupancy":
		return s.handleOccupancy(ctx, args)
	case "lot_overlay":
		return s.handleOverlay(ctx, args)
	case "lot_zone_crop":
		return s.handleZoneCrop(args)

	// Zone annotation
	case "zone_annotate_start":
		return s.handleAnnotateStart(args)
	case "zone_annotate_click":
		return s.handleAnnotateClick(args)
	case "zone_annotate_key":
		return s.handleAnnotateKey(args)
	case "zone_annotate_status":
		return s.handleAnnotateStatus(args)
	case "zone_annotate_save":
		return s.handleAnnotateSave(args)

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
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Zone selection ===

type lotArgs struct {
	LotID     *int   `json:"lot_id"`
	ZonesPath string `json:"zones_path"`
}

// lot resolves the zone definition named by a: an explicit file wins over
// a lot id.
func (s *Server) lot(a lotArgs) (*zones.Lot, error) {
	switch {
	case a.ZonesPath != "":
		return zones.Load(a.ZonesPath)
	case a.LotID != nil:
		if s.zones == nil {
			return nil, fmt.Errorf("no zones directory configured; pass zones_path")
		}
		return s.zones.Lot(*a.LotID)
	default:
		return nil, fmt.Errorf("lot_id or zones_path is required")
	}
}

type zonesLoadResult struct {
	LotID   int          `json:"lot_id"`
	Count   int          `json:"count"`
	SpotIDs []string     `json:"spot_ids"`
	Zones   []zones.Zone `json:"zones"`
}

func (s *Server) handleZonesLoad(args json.RawMessage) (interface{}, error) {
	var a lotArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	lot, err := s.lot(a)
	if err != nil {
		return nil, err
	}
	return &zonesLoadResult{
		LotID:   lot.LotID,
		Count:   len(lot.Zones),
		SpotIDs: lot.SpotIDs(),
		Zones:   lot.Zones,
	}, nil
}

// === Detection handlers ===

type preprocessArgs struct {
	Path    string `json:"path"`
	Variant string `json:"variant"`
}

type preprocessResult struct {
	Variant     string `json:"variant"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

func (s *Server) handlePreprocess(args json.RawMessage) (interface{}, error) {
	var a preprocessArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Variant == "" {
		a.Variant = "enhanced"
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	var rendered *image.RGBA
	switch a.Variant {
	case "enhanced":
		rendered = imaging.Enhance(img, s.runner.Preprocess)
	case "low_contrast":
		rendered = imaging.LowContrast(img, s.runner.Preprocess)
	default:
		return nil, fmt.Errorf("unknown variant %q: want enhanced or low_contrast", a.Variant)
	}

	encoded, err := imaging.EncodePNG(rendered)
	if err != nil {
		return nil, err
	}
	return &preprocessResult{
		Variant:     a.Variant,
		Width:       rendered.Bounds().Dx(),
		Height:      rendered.Bounds().Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}

type detectArgs struct {
	Path       string   `json:"path"`
	Confidence *float64 `json:"confidence"`
	IoU        *float64 `json:"iou"`
}

type detectResult struct {
	Count      int                   `json:"count"`
	Detections []detection.Detection `json:"detections"`
	Options    detection.Options     `json:"options"`
}

func (s *Server) handleDetect(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a detectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts := s.runner.Detection
	if a.Confidence != nil {
		opts.Confidence = *a.Confidence
	}
	if a.IoU != nil {
		opts.IoU = *a.IoU
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	variants := imaging.Variants(img, s.runner.Preprocess)
	dets, err := detection.Run(ctx, s.runner.Detector, s.runner.LabelTable(), opts, variants...)
	if err != nil {
		return nil, err
	}
	return &detectResult{Count: len(dets), Detections: dets, Options: opts}, nil
}

type mergeArgs struct {
	Sets [][]geometry.Box `json:"sets"`
	IoU  *float64         `json:"iou"`
}

type mergeResult struct {
	Input      int                   `json:"input"`
	Count      int                   `json:"count"`
	Boxes      []geometry.Box        `json:"boxes"`
	Detections []detection.Detection `json:"detections"`
}

func (s *Server) handleMerge(args json.RawMessage) (interface{}, error) {
	var a mergeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	iou := s.runner.Detection.IoU
	if a.IoU != nil {
		iou = *a.IoU
	}

	input := 0
	for _, set := range a.Sets {
		input += len(set)
	}
	merged := detection.Merge(iou, a.Sets...)
	return &mergeResult{
		Input:      input,
		Count:      len(merged),
		Boxes:      merged,
		Detections: detection.ToDetections(merged, s.runner.LabelTable()),
	}, nil
}

type clusterArgs struct {
	Box         geometry.Box `json:"box"`
	GridSize    *int         `json:"grid_size"`
	MarginRatio *float64     `json:"margin_ratio"`
}

type clusterResult struct {
	GridSize    int              `json:"grid_size"`
	MarginRatio float64          `json:"margin_ratio"`
	Points      []geometry.Point `json:"points"`
}

func (s *Server) handleClusterPoints(args json.RawMessage) (interface{}, error) {
	var a clusterArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts := s.occupancyOptions(a.GridSize, a.MarginRatio)
	return &clusterResult{
		GridSize:    opts.GridSize,
		MarginRatio: opts.MarginRatio,
		Points:      geometry.ClusterPoints(a.Box, opts.GridSize, opts.MarginRatio),
	}, nil
}

func (s *Server) occupancyOptions(gridSize *int, marginRatio *float64) occupancy.Options {
	opts := s.runner.Occupancy
	if gridSize != nil {
		opts.GridSize = *gridSize
	}
	if marginRatio != nil {
		opts.MarginRatio = *marginRatio
	}
	return opts
}

// === Occupancy handlers ===

type resolveArgs struct {
	lotArgs
	Detections  []detection.Detection `json:"detections"`
	GridSize    *int                  `json:"grid_size"`
	MarginRatio *float64              `json:"margin_ratio"`
}

type resolveResult struct {
	Records []occupancy.Record `json:"records"`
	Summary occupancy.Summary  `json:"summary"`
}

func (s *Server) handleResolve(args json.RawMessage) (interface{}, error) {
	var a resolveArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	lot, err := s.lot(a.lotArgs)
	if err != nil {
		return nil, err
	}

	records := occupancy.Compute(a.Detections, lot.Zones, lot.LotID, s.occupancyOptions(a.GridSize, a.MarginRatio))
	return &resolveResult{Records: records, Summary: occupancy.Summarize(records)}, nil
}

type occupancyArgs struct {
	lotArgs
	Path    string `json:"path"`
	Persist bool   `json:"persist"`
	Report  bool   `json:"report"`
}

type occupancyResult struct {
	*pipeline.Result
	Persisted bool `json:"persisted"`
	Reported  bool `json:"reported"`
}

func (s *Server) handleOccupancy(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a occupancyArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Persist && s.runner.Store == nil {
		return nil, errors.New("persist requested but no store is configured")
	}
	if a.Report && s.runner.Reporter == nil {
		return nil, errors.New("report requested but no collector URL is configured")
	}

	lot, err := s.lot(a.lotArgs)
	if err != nil {
		return nil, err
	}
	res, err := s.runner.Run(ctx, a.Path, lot)
	if err != nil {
		return nil, err
	}

	out := &occupancyResult{Result: res}
	if a.Persist {
		if err := s.runner.Persist(ctx, res); err != nil {
			return nil, err
		}
		out.Persisted = true
	}
	if a.Report {
		if err := s.runner.Publish(ctx, res); err != nil {
			return nil, err
		}
		out.Reported = true
	}
	return out, nil
}

type overlayArgs struct {
	lotArgs
	Path string `json:"path"`
	imaging.OverlayOptions
}

type overlayResult struct {
	*imaging.OverlayResult
	Summary occupancy.Summary `json:"summary"`
}

func (s *Server) handleOverlay(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a overlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	lot, err := s.lot(a.lotArgs)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	res, err := s.runner.RunImage(ctx, img, lot)
	if err != nil {
		return nil, err
	}

	ozones := make([]imaging.OverlayZone, len(lot.Zones))
	for i, z := range lot.Zones {
		ozones[i] = imaging.OverlayZone{SpotID: z.SpotID, Polygon: z.Coords, Taken: res.Records[i].Taken}
	}
	boxes := make([]imaging.OverlayBox, len(res.Detections))
	for i, d := range res.Detections {
		boxes[i] = imaging.OverlayBox{Rect: d.Box, Label: fmt.Sprintf("%s %.2f", d.Class, d.Confidence)}
	}

	drawn, err := imaging.Overlay(img, ozones, boxes, a.OverlayOptions)
	if err != nil {
		return nil, err
	}
	return &overlayResult{OverlayResult: drawn, Summary: res.Summary}, nil
}

type zoneCropArgs struct {
	lotArgs
	Path    string  `json:"path"`
	SpotID  string  `json:"spot_id"`
	Padding *int    `json:"padding"`
	Scale   float64 `json:"scale"`
}

func (s *Server) handleZoneCrop(args json.RawMessage) (interface{}, error) {
	var a zoneCropArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	padding := 10
	if a.Padding != nil {
		padding = *a.Padding
	}

	lot, err := s.lot(a.lotArgs)
	if err != nil {
		return nil, err
	}
	var zone *zones.Zone
	for i := range lot.Zones {
		if lot.Zones[i].SpotID == a.SpotID {
			zone = &lot.Zones[i]
			break
		}
	}
	if zone == nil {
		return nil, fmt.Errorf("lot %d has no spot %q", lot.LotID, a.SpotID)
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.CropZone(img, zone.Coords, padding, a.Scale)
}

// === Annotation handlers ===

type annotateStartArgs struct {
	LotID *int `json:"lot_id"`
}

type sessionArgs struct {
	SessionID string `json:"session_id"`
}

type sessionResult struct {
	SessionID string `json:"session_id"`
	annotate.Status
}

func (s *Server) session(id string) (*annotate.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("unknown annotation session %q", id)
	}
	return sess, nil
}

func (s *Server) closeSession(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *Server) handleAnnotateStart(args json.RawMessage) (interface{}, error) {
	var a annotateStartArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.LotID == nil {
		return nil, errors.New("lot_id is required")
	}

	id := uuid.New().String()
	sess := annotate.NewSession(*a.LotID)

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	s.debugf("annotation session %s started for lot %d", id, *a.LotID)
	return &sessionResult{SessionID: id, Status: sess.Status()}, nil
}

type annotateClickArgs struct {
	sessionArgs
	X int `json:"x"`
	Y int `json:"y"`
}

func (s *Server) handleAnnotateClick(args json.RawMessage) (interface{}, error) {
	var a annotateClickArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.session(a.SessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Click(a.X, a.Y); err != nil {
		return nil, err
	}
	return &sessionResult{SessionID: a.SessionID, Status: sess.Status()}, nil
}

type annotateKeyArgs struct {
	sessionArgs
	Key  string `json:"key"`
	Text string `json:"text"`
}

func (s *Server) handleAnnotateKey(args json.RawMessage) (interface{}, error) {
	var a annotateKeyArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Key == "" && a.Text == "" {
		return nil, errors.New("key or text is required")
	}
	sess, err := s.session(a.SessionID)
	if err != nil {
		return nil, err
	}
	if a.Text != "" {
		if err := sess.Type(a.Text); err != nil {
			return nil, err
		}
	}
	if a.Key != "" {
		if err := sess.Key(a.Key); err != nil {
			return nil, err
		}
	}

	st := sess.Status()
	if st.State == annotate.StateCancelled {
		s.closeSession(a.SessionID)
		s.debugf("annotation session %s cancelled", a.SessionID)
	}
	return &sessionResult{SessionID: a.SessionID, Status: st}, nil
}

func (s *Server) handleAnnotateStatus(args json.RawMessage) (interface{}, error) {
	var a sessionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.session(a.SessionID)
	if err != nil {
		return nil, err
	}
	return &sessionResult{SessionID: a.SessionID, Status: sess.Status()}, nil
}

type annotateSaveArgs struct {
	sessionArgs
	ZonesPath string `json:"zones_path"`
}

type annotateSaveResult struct {
	Path string     `json:"path"`
	Lot  *zones.Lot `json:"lot"`
}

// lotSaver is implemented by zone sources that can store definitions.
type lotSaver interface {
	Save(lot *zones.Lot) error
	Path(lotID int) string
}

func (s *Server) handleAnnotateSave(args json.RawMessage) (interface{}, error) {
	var a annotateSaveArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.session(a.SessionID)
	if err != nil {
		return nil, err
	}
	lot, err := sess.Result()
	if err != nil {
		return nil, err
	}

	path := a.ZonesPath
	if path != "" {
		err = zones.Save(path, lot)
	} else if saver, ok := s.zones.(lotSaver); ok {
		path = saver.Path(lot.LotID)
		err = saver.Save(lot)
	} else {
		return nil, errors.New("zones_path is required when no zones directory is configured")
	}
	if err != nil {
		return nil, err
	}

	s.closeSession(a.SessionID)

	s.debugf("annotation session %s saved %d zones to %s", a.SessionID, len(lot.Zones), path)
	return &annotateSaveResult{Path: path, Lot: lot}, nil
}
