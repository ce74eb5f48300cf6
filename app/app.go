package main

import (
	"context"
	"encoding/json"
	"flag"
	"strconv"

	"cloud.google.com/go/pubsub"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"rfpflow/analytics"
	"rfpflow/cache/querycache"
	C "rfpflow/config"
	"rfpflow/discovery"
	"rfpflow/embeddings"
	H "rfpflow/handler"
	"rfpflow/model/model"
	"rfpflow/task/rfpprocessor"
)

// ./app --env=development --api_http_port=8080 --project_id=my-project --discovery_endpoint=https://discoveryengine.googleapis.com/v1alpha/projects/my-project/locations/global/collections/default_collection/engines/rfp-engine/servingConfigs/default_serving_config:answer --embedding_endpoint=http://localhost:8501/v1/embed --bq_dataset=rfp_analytics --subscription=rfp-uploads-sub
func main() {
	defaults := C.FromEnv()

	env := flag.String("env", defaults.Env, "")
	port := flag.Int("api_http_port", defaults.Port, "")
	projectID := flag.String("project_id", defaults.ProjectID, "GCP project of the cache, analytics and trigger resources")

	cacheCollection := flag.String("cache_collection", defaults.CacheCollection, "Firestore collection holding cached answers")
	bqDataset := flag.String("bq_dataset", defaults.BigqueryDataset, "Bigquery dataset of the usage log")
	bqTable := flag.String("bq_table", defaults.BigqueryTable, "Bigquery table of the usage log")

	discoveryEndpoint := flag.String("discovery_endpoint", defaults.DiscoveryEndpoint, "Answer API endpoint")
	embeddingEndpoint := flag.String("embedding_endpoint", defaults.EmbeddingEndpoint, "Embedding inference endpoint")
	embeddingDimension := flag.Int("embedding_dimension", defaults.EmbeddingDimension, "Embedding vector dimensionality")

	subscription := flag.String("subscription", defaults.Subscription, "Pubsub subscription for storage notifications. Empty disables the pull worker.")
	flag.Parse()

	config := &C.Configuration{
		AppName:            "rfp_responder",
		Env:                *env,
		Port:               *port,
		ProjectID:          *projectID,
		CacheCollection:    *cacheCollection,
		BigqueryDataset:    *bqDataset,
		BigqueryTable:      *bqTable,
		DiscoveryEndpoint:  *discoveryEndpoint,
		EmbeddingEndpoint:  *embeddingEndpoint,
		EmbeddingDimension: *embeddingDimension,
		Subscription:       *subscription,
	}
	if err := C.InitConf(config); err != nil {
		log.WithError(err).Fatal("Failed to initialize config")
	}
	if err := C.InitServices(config); err != nil {
		log.WithError(err).Fatal("Failed to initialize services")
	}
	services := C.GetServices()

	processor := rfpprocessor.New(
		services.Storage,
		querycache.New(services.Firestore, config.CacheCollection),
		discovery.New(config.DiscoveryEndpoint),
		embeddings.New(config.EmbeddingEndpoint, config.EmbeddingDimension),
		analytics.New(services.Bigquery, config.BigqueryDataset, config.BigqueryTable),
	)

	if config.Subscription != "" {
		go subscribe(services.Pubsub.Subscription(config.Subscription), processor)
	}

	r := gin.Default()
	H.SetupRoutes(r, processor)

	log.Infof("Starting rfp responder on port %d", config.Port)
	if err := r.Run(":" + strconv.Itoa(config.Port)); err != nil {
		log.WithError(err).Fatal("Failed to start server")
	}
}

// subscribe feeds pulled storage notifications into the processor. Row
// level failures are contained inside ProcessObject; only a document
// level failure nacks the message for redelivery.
func subscribe(sub *pubsub.Subscription, processor *rfpprocessor.Processor) {
	err := sub.Receive(context.Background(), func(ctx context.Context, msg *pubsub.Message) {
		var notification model.StorageNotification
		if err := json.Unmarshal(msg.Data, &notification); err != nil ||
			notification.Bucket == "" || notification.Name == "" {
			log.WithField("message_id", msg.ID).Warn("Dropping message that is not a storage notification")
			msg.Ack()
			return
		}

		if err := processor.ProcessObject(ctx, notification.Bucket, notification.Name); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"bucket": notification.Bucket,
				"file":   notification.Name,
			}).Error("Failed to process document. Message will be redelivered.")
			msg.Nack()
			return
		}
		msg.Ack()
	})
	if err != nil {
		log.WithError(err).Fatal("Pubsub receive terminated")
	}
}
