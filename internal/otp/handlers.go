package otp

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler serves the OTP endpoint: one POST with an action discriminator,
// mirroring the single verification route the clients call.
//
//	{action: "send",   uid, phoneNumber} -> {success, message}
//	{action: "verify", uid, code}       -> {success, message}
func Handler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Action      string `json:"action"`
			UID         uint   `json:"uid"`
			PhoneNumber string `json:"phoneNumber"`
			Code        string `json:"code"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, Outcome{Message: "invalid request body"})
			return
		}

		// The session user may only act on their own verification.
		sessionUID, exists := c.Get("user_id")
		uid, ok := sessionUID.(uint)
		if !exists || !ok || uid != req.UID {
			c.JSON(http.StatusForbidden, Outcome{Message: "uid does not match the signed-in user"})
			return
		}

		var out Outcome
		switch req.Action {
		case "send":
			out = svc.Issue(c.Request.Context(), req.UID, req.PhoneNumber)
		case "verify":
			out = svc.Verify(c.Request.Context(), req.UID, req.Code)
		default:
			c.JSON(http.StatusBadRequest, Outcome{Message: "unknown action, expected send or verify"})
			return
		}

		c.JSON(http.StatusOK, out)
	}
}
