package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"examseat/internal/domain"
	"examseat/internal/ingest"
	"examseat/internal/service"

	"go.uber.org/zap"
)

// AllocationHandler 上传分配、结果查询、名单编辑、导出
type AllocationHandler struct {
	allocations *service.AllocationService
	roster      *service.RosterStore
	results     *service.ResultsService
	logger      *zap.Logger
}

func NewAllocationHandler(allocations *service.AllocationService, roster *service.RosterStore, results *service.ResultsService, logger *zap.Logger) *AllocationHandler {
	return &AllocationHandler{
		allocations: allocations,
		roster:      roster,
		results:     results,
		logger:      logger,
	}
}

// multipart 编码开销
const multipartOverhead = 1 << 20

// Upload 上传名单并分配（multipart: file + subject）
func (h *AllocationHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, ingest.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(ingest.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, h.logger, domain.NewError(domain.ErrValidation,
				fmt.Sprintf("roster exceeds %d bytes", ingest.MaxUploadBytes)))
			return
		}
		writeError(w, h.logger, domain.NewError(domain.ErrValidation, "failed to parse form").Wrap(err))
		return
	}

	subject := r.FormValue("subject")
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, h.logger, domain.NewError(domain.ErrValidation, "file not found in request"))
		return
	}
	defer file.Close()

	students, err := ingest.ReadStudents(file, header.Filename)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.allocations.Allocate(r.Context(), service.AllocateRequest{Subject: subject, Students: students})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

// Results 所有科目的分配结果：canonicalName -> records
func (h *AllocationHandler) Results(w http.ResponseWriter, r *http.Request) {
	results, err := h.results.Results(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(results))
}

// datasetSummary 数据集列表项（不含记录）
type datasetSummary struct {
	Name      string `json:"name"`
	Subject   string `json:"subject"`
	RunID     string `json:"run_id"`
	CreatedAt string `json:"created_at"`
	Rooms     int    `json:"rooms"`
	Occupants int    `json:"occupants"`
}

// ListDatasets 数据集概要列表
func (h *AllocationHandler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	list, err := h.roster.ListDatasets(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items := make([]datasetSummary, 0, len(list))
	for _, ds := range list {
		items = append(items, datasetSummary{
			Name:      ds.Name,
			Subject:   ds.Subject,
			RunID:     ds.RunID,
			CreatedAt: ds.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			Rooms:     len(ds.Records),
			Occupants: ds.TotalOccupants(),
		})
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": items, "total": len(items)}))
}

// GetDataset 单个科目的完整数据集
func (h *AllocationHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := h.roster.FetchDataset(r.Context(), r.PathValue("subject"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(ds))
}

// Drop 删除科目数据集（幂等）
func (h *AllocationHandler) Drop(w http.ResponseWriter, r *http.Request) {
	subject := r.PathValue("subject")
	if err := h.roster.Drop(r.Context(), subject); err != nil {
		writeError(w, h.logger, err)
		return
	}
	name, _ := domain.CanonicalName(subject)
	writeJSON(w, http.StatusOK, Ok(map[string]any{"dataset": name, "dropped": true}))
}

// recordResponse 单条记录 + 所属数据集
type recordResponse struct {
	Dataset string `json:"dataset"`
	domain.AssignmentRecord
}

func newRecordResponse(subject string, rec *domain.AssignmentRecord) recordResponse {
	name, _ := domain.CanonicalName(subject)
	return recordResponse{Dataset: name, AssignmentRecord: *rec}
}

// GetRecord 某考场的考生列表
func (h *AllocationHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	subject := r.PathValue("subject")
	rec, err := h.roster.FetchRecord(r.Context(), subject, r.PathValue("roomId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(newRecordResponse(subject, rec)))
}

// replaceOccupantsRequest rollNumbers 为旧前端字段名
type replaceOccupantsRequest struct {
	Occupants   []string `json:"occupants"`
	RollNumbers []string `json:"rollNumbers"`
}

// ReplaceOccupants 整体覆盖考生列表
func (h *AllocationHandler) ReplaceOccupants(w http.ResponseWriter, r *http.Request) {
	var req replaceOccupantsRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeError(w, h.logger, domain.NewError(domain.ErrValidation, "invalid body").Wrap(err))
		return
	}
	occupants := req.Occupants
	if occupants == nil {
		occupants = req.RollNumbers
	}
	if occupants == nil {
		writeError(w, h.logger, domain.NewError(domain.ErrValidation, "occupants is required"))
		return
	}

	subject := r.PathValue("subject")
	rec, err := h.roster.ReplaceOccupants(r.Context(), subject, r.PathValue("roomId"), occupants)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(newRecordResponse(subject, rec)))
}

// RemoveOccupant 删除一个考生
func (h *AllocationHandler) RemoveOccupant(w http.ResponseWriter, r *http.Request) {
	subject := r.PathValue("subject")
	rec, err := h.roster.RemoveOccupant(r.Context(), subject, r.PathValue("roomId"), r.PathValue("identifier"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(newRecordResponse(subject, rec)))
}

// Export 导出科目名单：默认 xlsx，format=csv 时导出 csv
func (h *AllocationHandler) Export(w http.ResponseWriter, r *http.Request) {
	ds, err := h.roster.FetchDataset(r.Context(), r.PathValue("subject"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	format := strings.ToLower(r.URL.Query().Get("format"))
	var (
		data        []byte
		contentType string
		ext         string
	)
	switch format {
	case "csv":
		data, err = GenerateRosterCSV(ds)
		contentType, ext = "text/csv; charset=utf-8", "csv"
	case "", "xlsx":
		data, err = GenerateRosterExport(ds)
		contentType, ext = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx"
	default:
		writeError(w, h.logger, domain.NewError(domain.ErrValidation, "format must be xlsx or csv"))
		return
	}
	if err != nil {
		h.logger.Error("Export failed", zap.String("dataset", ds.Name), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to generate export"))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, ds.Name, ext))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
