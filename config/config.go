package config

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"

	"rfpflow/services/gcstorage"
)

const DEVELOPMENT = "development"

// envPrefix scopes environment overrides, e.g. RFPFLOW_CACHE_COLLECTION.
const envPrefix = "rfpflow"

type Configuration struct {
	AppName            string `ignored:"true"`
	Env                string `envconfig:"ENV" default:"development"`
	Port               int    `envconfig:"PORT" default:"8080"`
	ProjectID          string `envconfig:"PROJECT_ID"`
	CacheCollection    string `envconfig:"CACHE_COLLECTION" default:"query_cache"`
	BigqueryDataset    string `envconfig:"BIGQUERY_DATASET"`
	BigqueryTable      string `envconfig:"BIGQUERY_TABLE" default:"rfp_queries_responses_timestamps"`
	DiscoveryEndpoint  string `envconfig:"DISCOVERY_ENDPOINT"`
	EmbeddingEndpoint  string `envconfig:"EMBEDDING_ENDPOINT"`
	EmbeddingDimension int    `envconfig:"EMBEDDING_DIMENSION" default:"384"`
	Subscription       string `envconfig:"SUBSCRIPTION"`
}

// Services holds the external clients built once at startup. They are
// passed into the orchestrator as constructed collaborators, not reached
// through package globals.
type Services struct {
	Storage   *gcstorage.GCSDriver
	Firestore *firestore.Client
	Bigquery  *bigquery.Client
	Pubsub    *pubsub.Client
}

var configuration *Configuration = nil
var services *Services = nil
var initiated bool = false

// FromEnv returns a Configuration seeded from defaults and environment
// overrides. Flags in the app main take precedence over both.
func FromEnv() *Configuration {
	conf := &Configuration{}
	if err := envconfig.Process(envPrefix, conf); err != nil {
		log.WithError(err).Fatal("Failed to read config from environment")
	}
	return conf
}

func InitConf(config *Configuration) error {
	if initiated {
		return fmt.Errorf("Config already initialized")
	}
	configuration = config
	initLogging()
	initiated = true
	return nil
}

func initLogging() {
	// Log as JSON instead of the default ASCII formatter.
	log.SetFormatter(&log.JSONFormatter{})

	if IsDevelopment() {
		log.SetLevel(log.DebugLevel)
	}
}

func InitServices(config *Configuration) error {
	ctx := context.Background()

	storageDriver, err := gcstorage.New()
	if err != nil {
		log.WithError(err).Error("Failed to initialize storage client")
		return err
	}
	log.Info("Storage service initialized")

	firestoreClient, err := firestore.NewClient(ctx, config.ProjectID)
	if err != nil {
		log.WithError(err).Error("Failed to initialize firestore client")
		return err
	}
	log.Info("Firestore service initialized")

	bigqueryClient, err := bigquery.NewClient(ctx, config.ProjectID)
	if err != nil {
		log.WithError(err).Error("Failed to initialize bigquery client")
		return err
	}
	log.Info("Bigquery service initialized")

	var pubsubClient *pubsub.Client
	if config.Subscription != "" {
		pubsubClient, err = pubsub.NewClient(ctx, config.ProjectID)
		if err != nil {
			log.WithError(err).Error("Failed to initialize pubsub client")
			return err
		}
		log.Infof("Pubsub service initialized with subscription: %s", config.Subscription)
	}

	services = &Services{
		Storage:   storageDriver,
		Firestore: firestoreClient,
		Bigquery:  bigqueryClient,
		Pubsub:    pubsubClient,
	}
	return nil
}

func GetConfig() *Configuration {
	return configuration
}

func GetServices() *Services {
	return services
}

func IsDevelopment() bool {
	return strings.Compare(configuration.Env, DEVELOPMENT) == 0
}
