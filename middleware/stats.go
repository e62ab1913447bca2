package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seo-insight/backend/logging"
)

// Stats tracks visitors and analysis outcomes on every request.
func Stats(usage *logging.Statistics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		usage.TrackVisitor(c.ClientIP())

		c.Next()

		// Only analysis requests feed the per-analysis counters.
		if c.Request.URL.Path == "/api/analyze" && c.Request.Method == "POST" {
			elapsed := float64(time.Since(start).Milliseconds())
			usage.TrackAnalysis(c.GetString(analyzedURLKey), elapsed, c.Writer.Status() >= 400)

			// Persist opportunistically so a crash loses little data.
			if shouldPersist(usage.AnalysisCount()) {
				go usage.Save()
			}
		}
	}
}

// shouldPersist triggers a save once every hundred analyses. Checking only
// on the analyze path keeps unrelated traffic from re-triggering a save
// while the count sits on a multiple of 100.
func shouldPersist(analyses int) bool {
	return analyses > 0 && analyses%100 == 0
}

// analyzedURLKey is where the analyze handler stores the target URL so the
// stats middleware can attribute the request to a site.
const analyzedURLKey = "analyzed_url"

// SetAnalyzedURL records the analysis target for the stats middleware.
func SetAnalyzedURL(c *gin.Context, url string) {
	c.Set(analyzedURLKey, url)
}
