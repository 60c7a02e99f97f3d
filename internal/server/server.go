package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"jtxboard/internal/utils"
	"jtxboard/provider"
	"jtxboard/store"
)

// StartOpts holds configuration for the HTTP facade.
type StartOpts struct {
	DB        *store.Database
	Provider  *provider.Provider
	Authority string
	Addr      string
	Out       io.Writer
}

// Start launches the HTTP facade over the content contract. It blocks until
// ctx is cancelled, then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.DB == nil || opts.Provider == nil {
		return fmt.Errorf("server: database and provider are required")
	}
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:8383"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	registerRoutes(router, opts)

	srv := &http.Server{
		Addr:    opts.Addr,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Serving content interface at http://%s\n", opts.Addr)
	}
	utils.Infof("listening on %s", opts.Addr)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// registerRoutes sets up the route groups: row CRUD, type lookup, attachment
// file streaming and diagnostics.
func registerRoutes(router *gin.Engine, opts StartOpts) {
	rows := router.Group("/rows")
	{
		rows.GET("/:table", handleQuery(opts))
		rows.GET("/:table/:id", handleQuery(opts))
		rows.POST("/:table", handleInsert(opts))
		rows.PUT("/:table", handleUpdate(opts))
		rows.PUT("/:table/:id", handleUpdate(opts))
		rows.DELETE("/:table", handleDelete(opts))
		rows.DELETE("/:table/:id", handleDelete(opts))
	}

	types := router.Group("/type")
	{
		types.GET("/:table", handleGetType(opts))
		types.GET("/:table/:id", handleGetType(opts))
	}

	files := router.Group("/files")
	{
		files.GET("/attachment/:id", handleOpenFile(opts))
		files.PUT("/attachment/:id", handleWriteFile(opts))
	}

	router.GET("/stats", handleStats(opts))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// contentURI reconstructs the content URI addressed by an HTTP request. Query
// parameters travel along unchanged so the sync gating sees them.
func contentURI(c *gin.Context, authority string) string {
	uri := "content://" + authority + "/" + c.Param("table")
	if id := c.Param("id"); id != "" {
		uri += "/" + id
	}
	if raw := c.Request.URL.RawQuery; raw != "" {
		uri += "?" + raw
	}
	return uri
}

// selectionFromRequest extracts the optional selection fragment, its bound
// arguments and the order-by clause from reserved query parameters.
func selectionFromRequest(c *gin.Context) (string, []any, string) {
	selection := c.Query("selection")
	var args []any
	for _, a := range c.QueryArray("selectionArg") {
		args = append(args, a)
	}
	return selection, args, c.Query("orderBy")
}

func abortWithError(c *gin.Context, err error) {
	var argErr *provider.ArgumentError
	switch {
	case errors.As(err, &argErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": argErr.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		utils.Errorf("request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func handleQuery(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		selection, args, orderBy := selectionFromRequest(c)
		rows, err := opts.Provider.Query(contentURI(c, opts.Authority), selection, args, orderBy)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if rows == nil {
			rows = []store.Values{}
		}
		c.JSON(http.StatusOK, gin.H{"rows": rows, "count": len(rows)})
	}
}

func handleInsert(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var values store.Values
		if err := c.ShouldBindJSON(&values); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
			return
		}

		id, err := opts.Provider.Insert(contentURI(c, opts.Authority), values)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if id == 0 {
			// Rejected bag or dangling foreign key: no row was created.
			c.JSON(http.StatusUnprocessableEntity, gin.H{"id": nil})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": id})
	}
}

func handleUpdate(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var values store.Values
		if err := c.ShouldBindJSON(&values); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
			return
		}

		selection, args, _ := selectionFromRequest(c)
		affected, err := opts.Provider.Update(contentURI(c, opts.Authority), values, selection, args)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": affected})
	}
}

func handleDelete(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		selection, args, _ := selectionFromRequest(c)
		deleted, err := opts.Provider.Delete(contentURI(c, opts.Authority), selection, args)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": deleted})
	}
}

func handleGetType(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		mimeType, err := opts.Provider.GetType(contentURI(c, opts.Authority))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"type": mimeType})
	}
}

func handleOpenFile(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		uri := "content://" + opts.Authority + "/attachment/" + c.Param("id")
		if raw := c.Request.URL.RawQuery; raw != "" {
			uri += "?" + raw
		}

		reader, err := opts.Provider.OpenFile(uri)
		if err != nil {
			abortWithError(c, err)
			return
		}
		defer reader.Close()

		c.Status(http.StatusOK)
		if _, err := io.Copy(c.Writer, reader); err != nil {
			utils.Warnf("attachment stream aborted: %v", err)
		}
	}
}

func handleWriteFile(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		uri := "content://" + opts.Authority + "/attachment/" + c.Param("id")
		if raw := c.Request.URL.RawQuery; raw != "" {
			uri += "?" + raw
		}

		if err := opts.Provider.WriteFile(uri, c.Request.Body); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "stored"})
	}
}

func handleStats(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := opts.DB.GetStats()
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}
