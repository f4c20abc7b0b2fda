package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"news-scraper/providers"
	"news-scraper/services"
	"news-scraper/storage"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"
)

// newRouter wires every route. It is shared by main and the route tests.
func newRouter(store *storage.Store, scraper *services.ScrapeService, publicDir string, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))
	router.GET("/metrics", metricsHandler())

	setupScrapeRoutes(router, scraper, log)
	setupArticleRoutes(router, store, log)
	setupHealthRoutes(router, store, log)
	setupStaticRoutes(router, publicDir)
	return router
}

// requestLogger logs one line per request with zap.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func setupScrapeRoutes(router *gin.Engine, scraper *services.ScrapeService, log *zap.Logger) {
	router.GET("/scrape", func(c *gin.Context) {
		result, err := runScrape(c.Request.Context(), scraper)
		if err != nil {
			var fetchErr *providers.FetchError
			if errors.As(err, &fetchErr) {
				c.JSON(http.StatusBadGateway, gin.H{"error": fetchErr.Error()})
				return
			}
			log.Error("Scrape failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "scrape failed"})
			return
		}

		status := http.StatusOK
		if result.Outcome() == "failed" {
			status = http.StatusInternalServerError
		}
		c.JSON(status, result)
	})
}

func setupArticleRoutes(router *gin.Engine, store *storage.Store, log *zap.Logger) {
	rg := router.Group("/articles")

	rg.GET("", func(c *gin.Context) {
		filter := storage.ArticleFilter{TitleContains: c.Query("title")}
		if raw := c.Query("has_note"); raw != "" {
			hasNote, err := strconv.ParseBool(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "has_note must be a boolean"})
				return
			}
			filter.HasNote = &hasNote
		}

		articles, err := store.FindArticles(c.Request.Context(), filter)
		if err != nil {
			log.Error("Database query for all articles failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, articles)
	})

	rg.GET("/:id", func(c *gin.Context) {
		id, ok := articleID(c)
		if !ok {
			return
		}
		article, err := store.FindArticle(c.Request.Context(), id, storage.FindOptions{PopulateNote: true})
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				c.JSON(http.StatusOK, nil)
				return
			}
			log.Error("Database query for article failed", zap.Uint("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, article)
	})

	rg.POST("/:id", func(c *gin.Context) {
		id, ok := articleID(c)
		if !ok {
			return
		}
		fields, err := noteFields(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		article, err := store.AttachNote(c.Request.Context(), id, fields)
		if err != nil {
			switch {
			case errors.Is(err, storage.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
			case errors.Is(err, storage.ErrInvalid):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				log.Error("Attaching note failed", zap.Uint("id", id), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			}
			return
		}

		notesCreatedCounter.Inc()
		log.Info("Note attached", zap.Uint("article_id", id), zap.Uintp("note_id", article.NoteID))
		c.JSON(http.StatusOK, article)
	})
}

func setupHealthRoutes(router *gin.Engine, store *storage.Store, log *zap.Logger) {
	router.GET("/healthz", func(c *gin.Context) {
		if err := store.Ping(c.Request.Context()); err != nil {
			log.Error("Database ping failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// setupStaticRoutes serves files from dir for any GET or HEAD that no route claimed.
func setupStaticRoutes(router *gin.Engine, dir string) {
	files := http.FileServer(http.Dir(dir))
	router.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		files.ServeHTTP(c.Writer, c.Request)
	})
}

// articleID parses the :id parameter and answers 400 itself when it is malformed.
func articleID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid article id"})
		return 0, false
	}
	return uint(id), true
}

// noteFields maps the request body onto note fields. Form values with a single entry
// become strings, repeated keys become lists. JSON object bodies are taken as they are.
func noteFields(c *gin.Context) (map[string]any, error) {
	if c.ContentType() == binding.MIMEJSON {
		fields := map[string]any{}
		if err := c.ShouldBindJSON(&fields); err != nil {
			return nil, err
		}
		return fields, nil
	}

	if strings.HasPrefix(c.ContentType(), binding.MIMEMultipartPOSTForm) {
		if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
			return nil, err
		}
	} else if err := c.Request.ParseForm(); err != nil {
		return nil, err
	}

	fields := make(map[string]any, len(c.Request.PostForm))
	for key, values := range c.Request.PostForm {
		if len(values) == 1 {
			fields[key] = values[0]
		} else {
			fields[key] = values
		}
	}
	return fields, nil
}
