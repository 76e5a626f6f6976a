// Package api provides the REST API server for markov2midi
package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/james-see/markov2midi/pkg/composer"
	"github.com/james-see/markov2midi/pkg/config"
	"github.com/james-see/markov2midi/pkg/corpus"
	"github.com/james-see/markov2midi/pkg/markov"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title markov2midi API
// @version 1.0
// @description Learn a pitch Markov model from uploaded MIDI files and generate new MIDI
// @host localhost:8080
// @BasePath /api/v1

// maxUploadBytes caps the request body of a corpus upload
const maxUploadBytes = 64 << 20

type server struct {
	logger    logrus.FieldLogger
	maxUpload int64
}

// StartServer starts the API server on the specified port
func StartServer(port int, logger logrus.FieldLogger) error {
	return NewRouter(logger).Run(fmt.Sprintf(":%d", port))
}

// NewRouter builds the gin engine with every route registered
func NewRouter(logger logrus.FieldLogger) *gin.Engine {
	return newRouter(logger, maxUploadBytes)
}

func newRouter(logger logrus.FieldLogger, maxUpload int64) *gin.Engine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &server{logger: logger, maxUpload: maxUpload}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))
	r.MaxMultipartMemory = maxUpload

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/modes", listModes)
		v1.POST("/generate", s.handleGenerate)
		v1.POST("/model", s.handleModel)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func requestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.WithFields(logrus.Fields{
			"function": "api.request",
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
		}).Debug("handled request")
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "markov2midi",
	})
}

// listModes godoc
// @Summary List generation modes
// @Description Returns the supported modes and chord policies
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/modes [get]
func listModes(c *gin.Context) {
	modes := make([]string, 0, len(composer.Modes()))
	for _, m := range composer.Modes() {
		modes = append(modes, string(m))
	}
	c.JSON(http.StatusOK, gin.H{
		"modes":  modes,
		"chords": []string{corpus.IncludeChords.String(), corpus.ExcludeChords.String()},
	})
}

// handleGenerate godoc
// @Summary Generate a MIDI file
// @Description Upload one or more MIDI files as the corpus and receive a generated MIDI file
// @Tags generate
// @Accept multipart/form-data
// @Produce audio/midi
// @Param files formData file true "MIDI files forming the corpus"
// @Param length formData int false "Notes per stream (default 100)"
// @Param start formData string false "Start pitch, number or name"
// @Param seed formData int false "Random seed"
// @Param mode formData string false "combined or hands"
// @Param chords formData string false "include or exclude"
// @Param threshold formData int false "Hand split pitch (default 60)"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /api/v1/generate [post]
func (s *server) handleGenerate(c *gin.Context) {
	corp, opts, ok := s.readRequest(c, true)
	if !ok {
		return
	}

	result, err := composer.New(nil, s.logger).Compose(corp, opts)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=generated.mid")
	c.Header("X-Markov-Seed", strconv.FormatUint(result.Seed, 10))
	c.Header("X-Markov-Skipped", strconv.Itoa(len(result.Skipped)))
	c.Data(http.StatusOK, "audio/midi", result.MIDI)
}

// handleModel godoc
// @Summary Build the transition model
// @Description Upload MIDI files and receive the learned transition tables as JSON
// @Tags model
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "MIDI files forming the corpus"
// @Param mode formData string false "combined or hands"
// @Param chords formData string false "include or exclude"
// @Param threshold formData int false "Hand split pitch (default 60)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /api/v1/model [post]
func (s *server) handleModel(c *gin.Context) {
	corp, opts, ok := s.readRequest(c, false)
	if !ok {
		return
	}

	streams, err := composer.New(nil, s.logger).Model(corp, opts)
	if err != nil {
		writeError(c, err)
		return
	}

	skipped := make([]string, 0, len(corp.Skipped))
	for _, e := range corp.Skipped {
		skipped = append(skipped, e.Error())
	}
	c.JSON(http.StatusOK, gin.H{
		"mode":    opts.Mode,
		"files":   len(corp.Files),
		"skipped": skipped,
		"streams": streams,
	})
}

// readRequest parses the uploaded corpus and form options. It writes the
// error response itself and reports false when the request is unusable.
func (s *server) readRequest(c *gin.Context, generation bool) (*corpus.Corpus, composer.Options, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit)})
			return nil, composer.Options{}, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files uploaded"})
		return nil, composer.Options{}, false
	}

	opts, err := parseOptions(c, generation)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, opts, false
	}
	headers := append(form.File["files"], form.File["file"]...)
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files uploaded"})
		return nil, opts, false
	}

	sources := make([]corpus.Source, 0, len(headers))
	for _, h := range headers {
		sources = append(sources, uploadSource(h))
	}

	corp, err := corpus.Read(c.Request.Context(), sources, corpus.Options{Logger: s.logger})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, opts, false
	}
	return corp, opts, true
}

func uploadSource(h *multipart.FileHeader) corpus.Source {
	return corpus.Source{
		Name: h.Filename,
		Load: func() ([]byte, error) {
			f, err := h.Open()
			if err != nil {
				return nil, err
			}
			defer func() { _ = f.Close() }()
			return io.ReadAll(f)
		},
	}
}

func parseOptions(c *gin.Context, generation bool) (composer.Options, error) {
	opts := composer.DefaultOptions()

	mode, err := composer.ParseMode(c.PostForm("mode"))
	if err != nil {
		return opts, err
	}
	opts.Mode = mode

	opts.Chords, err = corpus.ParseChordPolicy(c.PostForm("chords"))
	if err != nil {
		return opts, err
	}

	if v := c.PostForm("threshold"); v != "" {
		p, err := markov.ParsePitch(v)
		if err != nil {
			return opts, fmt.Errorf("threshold: %w", err)
		}
		opts.Threshold = p
	}

	if !generation {
		return opts, nil
	}

	if v := c.PostForm("length"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return opts, fmt.Errorf("invalid length %q", v)
		}
		opts.Length = n
	}

	if v := c.PostForm("start"); v != "" {
		p, err := markov.ParsePitch(v)
		if err != nil {
			return opts, err
		}
		opts.Start = &p
	}

	opts.Seed, err = config.ParseSeed(strings.TrimSpace(c.PostForm("seed")))
	if err != nil {
		return opts, err
	}
	return opts, opts.Validate()
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, composer.ErrEmptyCorpus), errors.Is(err, markov.ErrInvalidModel):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, markov.ErrInvalidLength), errors.Is(err, markov.ErrInvalidPitch):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
