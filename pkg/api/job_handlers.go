package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/james-see/wavenotes/pkg/apperrors"
	"github.com/james-see/wavenotes/pkg/converter"
	"github.com/james-see/wavenotes/pkg/notes"
)

// handleCreateJob godoc
// @Summary Analyse a recording
// @Description Upload an audio file; it is decoded, transcribed and cleaned in the background
// @Tags jobs
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Audio file (wav, mp3, flac, ogg, m4a)"
// @Param settings formData string false "Settings overrides as JSON"
// @Success 202 {object} JobView
// @Failure 400 {object} map[string]string
// @Router /api/v1/jobs [post]
func (s *Server) handleCreateJob(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer func() { _ = file.Close() }()

	settings, err := settingsFromRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := s.jobs.Create(header.Filename, file, settings)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, apperrors.ErrUnsupportedFormat) || errors.Is(err, apperrors.ErrCorruptedFile) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, job.View())
}

func (s *Server) lookupJob(c *gin.Context) *Job {
	job := s.jobs.Get(c.Param("id"))
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
	}
	return job
}

// completedJob returns the job when its analysis has finished, writing an
// error response otherwise
func (s *Server) completedJob(c *gin.Context) *Job {
	job := s.lookupJob(c)
	if job == nil {
		return nil
	}
	switch job.Status() {
	case StatusComplete:
		return job
	case StatusFailed:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": job.View().Error})
	default:
		c.JSON(http.StatusConflict, gin.H{"error": "Job still processing"})
	}
	return nil
}

// handleJobStatus godoc
// @Summary Job status
// @Tags jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} JobView
// @Failure 404 {object} map[string]string
// @Router /api/v1/jobs/{id} [get]
func (s *Server) handleJobStatus(c *gin.Context) {
	if job := s.lookupJob(c); job != nil {
		c.JSON(http.StatusOK, job.View())
	}
}

// handleJobNotes godoc
// @Summary Cleaned notes of a job
// @Tags jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} converter.NotesDocument
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/jobs/{id}/notes [get]
func (s *Server) handleJobNotes(c *gin.Context) {
	job := s.completedJob(c)
	if job == nil {
		return
	}
	a, _ := job.session.Current()
	c.JSON(http.StatusOK, converter.NotesDocument{Tempo: s.cfg.Tempo, Notes: nonNil(a.Notes)})
}

// handleJobSettings godoc
// @Summary Re-apply settings
// @Description Re-run post-processing of a finished job with new settings, without transcribing again
// @Tags jobs
// @Accept json
// @Produce json
// @Param id path string true "Job ID"
// @Param settings body notes.SettingsFile true "Settings overrides"
// @Success 200 {object} converter.NotesDocument
// @Failure 400 {object} map[string]string
// @Router /api/v1/jobs/{id}/settings [put]
func (s *Server) handleJobSettings(c *gin.Context) {
	job := s.completedJob(c)
	if job == nil {
		return
	}

	var f notes.SettingsFile
	if err := json.NewDecoder(c.Request.Body).Decode(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("failed to parse settings: %v", err)})
		return
	}
	a, _ := job.session.Current()
	settings := a.Settings
	if err := notes.ApplyFile(&settings, &f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cleaned, err := job.session.Reapply(settings)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, converter.NotesDocument{Tempo: s.cfg.Tempo, Notes: nonNil(cleaned)})
}

// handleJobMIDI godoc
// @Summary Download MIDI
// @Tags jobs
// @Produce audio/midi
// @Param id path string true "Job ID"
// @Param tempo query number false "Export tempo in BPM"
// @Success 200 {file} binary
// @Failure 404 {object} map[string]string
// @Router /api/v1/jobs/{id}/midi [get]
func (s *Server) handleJobMIDI(c *gin.Context) {
	job := s.completedJob(c)
	if job == nil {
		return
	}
	a, _ := job.session.Current()

	m := converter.NewMIDIConverter()
	m.SetTempo(tempoFromRequest(c, s.cfg.Tempo))
	data, err := m.GenerateMIDI(a.Notes)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", outputName(job.Filename, ".mid")))
	c.Data(http.StatusOK, "audio/midi", data)
}

// handleJobPreview godoc
// @Summary Download preview
// @Tags jobs
// @Produce audio/wav
// @Param id path string true "Job ID"
// @Success 200 {file} binary
// @Failure 404 {object} map[string]string
// @Router /api/v1/jobs/{id}/preview [get]
func (s *Server) handleJobPreview(c *gin.Context) {
	job := s.completedJob(c)
	if job == nil {
		return
	}

	path, err := job.session.RenderPreview()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", outputName(job.Filename, "_preview.wav")))
	c.Data(http.StatusOK, "audio/wav", data)
}

// handleDeleteJob godoc
// @Summary Delete a job
// @Tags jobs
// @Param id path string true "Job ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /api/v1/jobs/{id} [delete]
func (s *Server) handleDeleteJob(c *gin.Context) {
	if !s.jobs.Delete(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	c.Status(http.StatusNoContent)
}
