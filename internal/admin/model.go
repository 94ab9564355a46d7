/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	loglvl "github.com/nexer-proxy/nexer/logger/level"
)

func (s *Server) handleStatus(c *gin.Context) {
	var apps []AppStatus
	if s.status != nil {
		apps = s.status()
	}
	c.JSON(http.StatusOK, gin.H{"apps": apps})
}

// handleShutdown acknowledges the request before cancelling, so the
// response reaches the operator even though it triggers the process's
// own teardown.
func (s *Server) handleShutdown(c *gin.Context) {
	s.logEntry(loglvl.WarnLevel, "shutdown requested via admin endpoint")
	c.JSON(http.StatusOK, gin.H{"status": "shutting down"})
	c.Writer.Flush()

	if s.shutdown != nil {
		go s.shutdown()
	}
}
