package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/campusplay/internal/models"
	"github.com/joshua-takyi/campusplay/internal/services"
)

// GetMyProfile answers with the caller's profile and the events they are
// on or created.
func GetMyProfile(p *services.ProfileService, e *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}

		profile, err := p.GetProfile(c.Request.Context(), claims.UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		if err := e.FillEventHistory(c.Request.Context(), profile); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(profile, ""))
	}
}

func GetProfile(p *services.ProfileService, e *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentUser(c); !ok {
			return
		}

		profile, err := p.GetProfile(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		if err := e.FillEventHistory(c.Request.Context(), profile); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(profile, ""))
	}
}

func UpdateProfile(p *services.ProfileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}

		var update models.ProfileUpdate
		if err := c.ShouldBindJSON(&update); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid request payload"))
			return
		}

		profile, err := p.UpdateProfile(c.Request.Context(), claims.UserID, c.Param("id"), update)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(profile, "profile updated"))
	}
}

func UploadAvatar(p *services.ProfileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}

		var req struct {
			// data URI or URL of the image
			Image string `json:"image"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid request payload"))
			return
		}

		profile, err := p.UploadAvatar(c.Request.Context(), claims.UserID, c.Param("id"), req.Image)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(profile, "avatar updated"))
	}
}
