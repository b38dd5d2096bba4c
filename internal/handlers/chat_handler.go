package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/campusplay/internal/models"
	"github.com/joshua-takyi/campusplay/internal/services"
)

func ListMessages(ch *services.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}

		msgs, err := ch.ListMessages(c.Request.Context(), c.Param("id"), claims.UserID)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.ListResponse(msgs, len(msgs)))
	}
}

func SendMessage(ch *services.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}

		var req struct {
			Body string `json:"body"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid request payload"))
			return
		}

		msg, err := ch.SendMessage(c.Request.Context(), c.Param("id"), claims.UserID, req.Body)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, models.SuccessResponse(msg, ""))
	}
}
