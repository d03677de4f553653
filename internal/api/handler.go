package api

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"eventdesk/internal/auth"
	"eventdesk/internal/importjob"
	"eventdesk/internal/participant"
	"eventdesk/internal/queue"
	"eventdesk/internal/transfer"
)

// ParticipantHandler serves the participant routes.
type ParticipantHandler struct {
	svc            *participant.Service
	queue          queue.Queue
	statuses       importjob.StatusStore
	loc            *time.Location
	maxImportBytes int64
	log            *slog.Logger
	now            func() time.Time
}

func NewParticipantHandler(svc *participant.Service, q queue.Queue, statuses importjob.StatusStore, loc *time.Location, maxImportBytes int64, log *slog.Logger) *ParticipantHandler {
	if log == nil {
		log = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ParticipantHandler{
		svc:            svc,
		queue:          q,
		statuses:       statuses,
		loc:            loc,
		maxImportBytes: maxImportBytes,
		log:            log,
		now:            time.Now,
	}
}

type participantResponse struct {
	Participant       participant.Participant `json:"participant"`
	OfferedMilestones []participant.Milestone `json:"offered_milestones"`
}

func view(p participant.Participant) participantResponse {
	return participantResponse{Participant: p, OfferedMilestones: p.OfferedMilestones()}
}

type statsResponse struct {
	participant.Stats
	Total int `json:"total"`
}

func (h *ParticipantHandler) HandleSearch(c *gin.Context) {
	res, err := h.svc.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		renderErr(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": res})
}

func (h *ParticipantHandler) HandleGet(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		renderErr(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view(p))
}

func (h *ParticipantHandler) HandleList(c *gin.Context) {
	order, err := participant.ParseOrder(c.Query("order"))
	if err != nil {
		renderErr(c, h.log, err)
		return
	}
	ps, err := h.svc.List(c.Request.Context(), auth.ActorFrom(c), order)
	if err != nil {
		renderErr(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": ps})
}

func (h *ParticipantHandler) HandleCreate(c *gin.Context) {
	var req CreateParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.svc.Create(c.Request.Context(), auth.ActorFrom(c), req.Row())
	if err != nil {
		renderErr(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, view(p))
}

func (h *ParticipantHandler) HandleUpdate(c *gin.Context) {
	var req UpdateParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(c, err)
		return
	}
	h.update(c, req.Changes)
}

func (h *ParticipantHandler) HandleMilestone(c *gin.Context) {
	m, ok := parseMilestone(c.Param("milestone"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, errorBody{Error: "unknown milestone"})
		return
	}
	var req MilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(c, err)
		return
	}
	h.update(c, participant.MarkMilestone(m, *req.Done))
}

func (h *ParticipantHandler) update(c *gin.Context, ch participant.Changes) {
	saved, delta, err := h.svc.Update(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), ch)
	if err != nil {
		renderErr(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"participant":        saved,
		"offered_milestones": saved.OfferedMilestones(),
		"delta":              delta,
	})
}

func (h *ParticipantHandler) HandleDelete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), auth.ActorFrom(c), c.Param("id")); err != nil {
		renderErr(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ParticipantHandler) HandleStats(c *gin.Context) {
	st, err := h.svc.Stats(c.Request.Context(), auth.ActorFrom(c))
	if err != nil {
		renderErr(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, statsResponse{Stats: st, Total: st.Total()})
}

func (h *ParticipantHandler) HandleRecomputeStats(c *gin.Context) {
	st, err := h.svc.RecomputeStats(c.Request.Context(), auth.ActorFrom(c))
	if err != nil {
		renderErr(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, statsResponse{Stats: st, Total: st.Total()})
}

func (h *ParticipantHandler) HandleExport(c *gin.Context) {
	rows, err := h.svc.Export(c.Request.Context(), auth.ActorFrom(c), h.loc)
	if err != nil {
		renderErr(c, h.log, err)
		return
	}
	var buf bytes.Buffer
	if err := transfer.WriteCSV(&buf, rows); err != nil {
		renderErr(c, h.log, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+transfer.ExportFilename(h.now(), h.loc)+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// HandleImport accepts a CSV either as the "file" field of a multipart form
// or as a raw text/csv body, and queues it.
func (h *ParticipantHandler) HandleImport(c *gin.Context) {
	actor := auth.ActorFrom(c)
	if err := participant.AuthorizeAdmin(actor, "import participants").Err(actor); err != nil {
		renderErr(c, h.log, err)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxImportBytes)

	var (
		src    io.Reader
		source = "upload.csv"
	)
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		fh, err := c.FormFile("file")
		if err != nil {
			if tooLarge(err) {
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, errorBody{Error: "upload too large"})
				return
			}
			badRequest(c, errors.New("multipart upload needs a file field"))
			return
		}
		f, err := fh.Open()
		if err != nil {
			badRequest(c, err)
			return
		}
		defer f.Close()
		src, source = f, filepath.Base(fh.Filename)
	} else {
		src = c.Request.Body
	}

	rows, err := transfer.ReadCSV(src)
	if err != nil {
		if tooLarge(err) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, errorBody{Error: "upload too large"})
			return
		}
		renderErr(c, h.log, err)
		return
	}
	if len(rows) == 0 {
		badRequest(c, errors.New("upload contains no participants"))
		return
	}

	st, err := importjob.Enqueue(c.Request.Context(), h.queue, h.statuses, importjob.Job{Actor: actor, Source: source, Rows: rows})
	if err != nil {
		renderErr(c, h.log, err)
		return
	}
	c.JSON(http.StatusAccepted, st)
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func (h *ParticipantHandler) HandleImportStatus(c *gin.Context) {
	st, err := h.statuses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		renderErr(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
