package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/campusplay/internal/models"
	"github.com/joshua-takyi/campusplay/internal/services"
)

func ListEvents(e *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}

		scope := services.EventScope(c.DefaultQuery("scope", string(services.ScopeOpen)))
		views, err := e.ListEvents(c.Request.Context(), claims.UserID, scope, c.Query("sport"))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.ListResponse(views, len(views)))
	}
}

func CreateEvent(e *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}

		var in models.EventInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid request payload"))
			return
		}

		event, err := e.CreateEvent(c.Request.Context(), in, claims.UserID)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, models.SuccessResponse(models.ViewOf(*event, claims.UserID), "event created"))
	}
}

func GetEvent(e *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}

		event, err := e.GetEvent(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(models.ViewOf(*event, claims.UserID), ""))
	}
}

// eventAction runs a roster or lifecycle operation for the caller and
// answers with the event as it looks afterwards.
func eventAction(e *services.EventService, message string, run func(c *gin.Context, userID string) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}

		if err := run(c, claims.UserID); err != nil {
			respondError(c, err)
			return
		}

		event, err := e.GetEvent(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusOK, models.SuccessResponse(nil, message))
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(models.ViewOf(*event, claims.UserID), message))
	}
}

func JoinEvent(e *services.EventService) gin.HandlerFunc {
	return eventAction(e, "joined event", func(c *gin.Context, userID string) error {
		return e.JoinEvent(c.Request.Context(), c.Param("id"), userID)
	})
}

func LeaveEvent(e *services.EventService) gin.HandlerFunc {
	return eventAction(e, "left event", func(c *gin.Context, userID string) error {
		return e.LeaveEvent(c.Request.Context(), c.Param("id"), userID)
	})
}

func KickParticipant(e *services.EventService) gin.HandlerFunc {
	return eventAction(e, "participant removed", func(c *gin.Context, userID string) error {
		var req struct {
			UserID string `json:"user_id"`
			Reason string `json:"reason"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			return models.Validationf("invalid request payload")
		}
		return e.KickParticipant(c.Request.Context(), c.Param("id"), userID, req.UserID, req.Reason)
	})
}

func CloseEvent(e *services.EventService) gin.HandlerFunc {
	return eventAction(e, "event closed", func(c *gin.Context, userID string) error {
		var req struct {
			Reason string `json:"reason"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			return models.Validationf("invalid request payload")
		}
		return e.CloseEvent(c.Request.Context(), c.Param("id"), userID, req.Reason)
	})
}

func UpdateCapacity(e *services.EventService) gin.HandlerFunc {
	return eventAction(e, "capacity updated", func(c *gin.Context, userID string) error {
		var req struct {
			MaxParticipants int `json:"max_participants"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			return models.Validationf("invalid request payload")
		}
		return e.UpdateMaxParticipants(c.Request.Context(), c.Param("id"), userID, req.MaxParticipants)
	})
}

func CancelEvent(e *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}

		if err := e.CancelEvent(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(nil, "event cancelled"))
	}
}
