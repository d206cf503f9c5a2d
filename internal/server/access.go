package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetAccessStatus(c *gin.Context) {
	status, err := s.accessSvc.GetAccessStatus(c.Request.Context(), userID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}
