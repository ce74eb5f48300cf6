package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"rfpflow/model/model"
)

// ObjectProcessor runs one document batch for a storage object.
type ObjectProcessor interface {
	ProcessObject(ctx context.Context, bucket, name string) error
}

// pushEnvelope is the Pub/Sub push delivery wrapper. Message data is the
// base64 encoded storage notification JSON.
type pushEnvelope struct {
	Message struct {
		Data      []byte `json:"data"`
		MessageID string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

func SetupRoutes(r *gin.Engine, processor ObjectProcessor) {
	r.GET("/status", statusHandler)
	r.POST("/notifications", notificationHandler(processor))
}

func statusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func notificationHandler(processor ObjectProcessor) gin.HandlerFunc {
	return func(c *gin.Context) {
		var envelope pushEnvelope
		if err := c.ShouldBindJSON(&envelope); err != nil {
			log.WithError(err).Warn("Invalid pubsub push envelope")
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid pubsub envelope"})
			return
		}

		var notification model.StorageNotification
		if err := json.Unmarshal(envelope.Message.Data, &notification); err != nil ||
			notification.Bucket == "" || notification.Name == "" {
			log.WithField("message_id", envelope.Message.MessageID).
				Warn("Push message is not a storage notification")
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid storage notification"})
			return
		}

		if err := processor.ProcessObject(c.Request.Context(),
			notification.Bucket, notification.Name); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"bucket": notification.Bucket,
				"file":   notification.Name,
			}).Error("Failed to process document")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
			return
		}

		c.Status(http.StatusNoContent)
	}
}
