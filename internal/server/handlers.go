package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Denis-Joly/QuickScript/internal/domain"
	"github.com/Denis-Joly/QuickScript/internal/media"
)

// statusResponse is the polling payload shared by submit and status calls.
type statusResponse struct {
	JobID     string  `json:"job_id"`
	Status    string  `json:"status"`
	Progress  float64 `json:"progress"`
	Message   string  `json:"message,omitempty"`
	ResultURL string  `json:"result_url,omitempty"`
}

type urlRequest struct {
	URL     string          `json:"url" binding:"required"`
	Options *domain.Options `json:"options"`
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "QuickScript API is running"})
}

// handleProcessFile accepts a multipart media upload and queues a job.
func (s *Server) handleProcessFile(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		return
	}
	if !media.SupportedUploadExt(header.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported media file: %s", header.Filename)})
		return
	}
	if s.cfg.MaxUploadMB > 0 && header.Size > s.cfg.MaxUploadMB<<20 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("file exceeds %d MB limit", s.cfg.MaxUploadMB)})
		return
	}

	opts, err := parseOptions(c.PostForm("options"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed options"})
		return
	}

	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	path, err := s.workspace.SaveUpload(header.Filename, f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	id, err := s.scheduler.Submit(domain.LocalFileSource(path), opts)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, statusResponse{
		JobID:    id,
		Status:   "queued",
		Progress: 0,
		Message:  "File upload successful, processing queued",
	})
}

// handleProcessURL accepts a remote media URL and queues a job.
func (s *Server) handleProcessURL(c *gin.Context) {
	var req urlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url field is required"})
		return
	}

	var opts domain.Options
	if req.Options != nil {
		opts = *req.Options
	}

	id, err := s.scheduler.Submit(domain.RemoteURLSource(strings.TrimSpace(req.URL)), opts)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, statusResponse{
		JobID:    id,
		Status:   "queued",
		Progress: 0,
		Message:  "URL submitted, processing queued",
	})
}

// handleStatus returns the polling projection of one job.
func (s *Server) handleStatus(c *gin.Context) {
	id := c.Param("job_id")
	job, err := s.store.Get(id)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": "job not found"})
		return
	}

	resp := statusResponse{
		JobID:    job.ID,
		Status:   job.Stage.External(),
		Progress: job.Progress,
		Message:  job.Message,
	}
	if job.Stage == domain.StageComplete {
		resp.ResultURL = fmt.Sprintf("/download/%s/md", job.ID)
	}
	c.JSON(http.StatusOK, resp)
}

// handleDownload serves the canonical artifact or a derived export.
func (s *Server) handleDownload(c *gin.Context) {
	id := c.Param("job_id")
	format, err := domain.ParseFormat(c.Param("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be md, txt, or pdf"})
		return
	}

	job, err := s.store.Get(id)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": "job not found"})
		return
	}
	if job.Stage != domain.StageComplete {
		c.JSON(errorStatus(domain.ErrNotReady), gin.H{"error": "job not complete"})
		return
	}

	mdPath, ok := job.ResultPaths[domain.FormatMarkdown]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
		return
	}

	path, err := s.renderer.Render(c.Request.Context(), mdPath, format)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	// Remember derived exports so delete can account for them.
	if format != domain.FormatMarkdown {
		_, _ = s.store.Update(id, func(j *domain.Job) {
			if j.ResultPaths == nil {
				j.ResultPaths = make(map[domain.Format]string)
			}
			j.ResultPaths[format] = path
		})
	}

	c.FileAttachment(path, "quickscript_output."+string(format))
}

// handleDelete cancels an active job and removes all its resources.
func (s *Server) handleDelete(c *gin.Context) {
	id := c.Param("job_id")
	job, err := s.store.Get(id)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": "job not found"})
		return
	}

	if job.Stage.Terminal() {
		// Runner is done; its work dir is already gone, results are ours.
		_ = s.workspace.RemoveJobDir(id)
	} else {
		// Active job: flag it and let the runner tear down the work dir
		// at its next checkpoint.
		_ = s.scheduler.Cancel(id)
	}

	if err := s.store.Delete(id); err != nil {
		c.JSON(errorStatus(err), gin.H{"error": "job not found"})
		return
	}
	if err := s.workspace.RemoveResults(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Job cancelled and resources cleaned up"})
}

func (s *Server) handleDiagnostics(c *gin.Context) {
	c.JSON(http.StatusOK, s.diagnostics)
}

// parseOptions decodes the optional options form field.
func parseOptions(raw string) (domain.Options, error) {
	var opts domain.Options
	if strings.TrimSpace(raw) == "" {
		return opts, nil
	}
	if err := json.Unmarshal([]byte(raw), &opts); err != nil {
		return domain.Options{}, err
	}
	return opts, nil
}

// errorStatus maps the error taxonomy onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, domain.ErrCapacity):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
