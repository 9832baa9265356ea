package database

import (
	"context"
	"fmt"
	"time"

	"threadsntrends_back_end/internal/config"
	"threadsntrends_back_end/internal/repository"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gocql/gocql"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Connections regroupe les clients ouverts au démarrage.
// Scylla, Elastic et MinIO restent nil quand ils ne sont pas configurés.
type Connections struct {
	Mongo   *mongo.Client
	DB      *mongo.Database
	Redis   *redis.Client
	Scylla  *gocql.Session
	Elastic *elasticsearch.Client
	MinIO   *minio.Client
}

// Connect ouvre MongoDB et Redis (obligatoires) puis les services optionnels.
func Connect(ctx context.Context, cfg *config.Config) (*Connections, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	conns := &Connections{}

	client, db, err := connectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, err
	}
	conns.Mongo, conns.DB = client, db

	rdb, err := connectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		conns.Close(context.Background())
		return nil, err
	}
	conns.Redis = rdb

	if hosts := cfg.ScyllaHostList(); len(hosts) > 0 {
		session, err := connectScylla(hosts, cfg.ScyllaKeyspace, cfg.ScyllaUsername, cfg.ScyllaPassword)
		if err != nil {
			log.Warn().Err(err).Msg("⚠️ ScyllaDB indisponible, journal d'audit désactivé")
		} else {
			conns.Scylla = session
		}
	}

	if cfg.ElasticURL != "" {
		es, err := connectElastic(cfg.ElasticURL, cfg.ElasticUser, cfg.ElasticPassword)
		if err != nil {
			log.Warn().Err(err).Msg("⚠️ Elasticsearch indisponible, recherche sur MongoDB")
		} else {
			conns.Elastic = es
		}
	}

	if cfg.MinioEndpoint != "" {
		mc, err := connectMinIO(ctx, cfg)
		if err != nil {
			log.Warn().Err(err).Msg("⚠️ MinIO indisponible, upload d'images désactivé")
		} else {
			conns.MinIO = mc
		}
	}

	log.Info().Msg("✅ Bases de données connectées")
	return conns, nil
}

func (c *Connections) Close(ctx context.Context) {
	if c.Scylla != nil {
		c.Scylla.Close()
		log.Info().Msg("🔌 Session ScyllaDB fermée")
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("⚠️ Fermeture Redis")
		}
	}
	if c.Mongo != nil {
		if err := c.Mongo.Disconnect(ctx); err != nil {
			log.Warn().Err(err).Msg("⚠️ Fermeture MongoDB")
		}
	}
}

// =============================================
// MONGODB
// =============================================
func connectMongo(ctx context.Context, uri, name string) (*mongo.Client, *mongo.Database, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("connexion MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	db := client.Database(name)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("index MongoDB: %w", err)
	}
	log.Info().Str("db", name).Msg("✅ Connecté à MongoDB")
	return client, db, nil
}

// =============================================
// REDIS
// =============================================
func connectRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connexion Redis: %w", err)
	}
	log.Info().Str("addr", addr).Msg("✅ Connecté à Redis")
	return rdb, nil
}

// =============================================
// SCYLLA DB (keyspace d'audit)
// =============================================
func connectScylla(hosts []string, keyspace, username, password string) (*gocql.Session, error) {
	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 5 * time.Second
	cluster.NumConns = 4
	cluster.MaxWaitSchemaAgreement = 30 * time.Second
	cluster.ReconnectInterval = time.Second
	if username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: username,
			Password: password,
		}
	}
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("session ScyllaDB pour %s: %w", keyspace, err)
	}
	log.Info().Str("keyspace", keyspace).Msg("✅ Session ScyllaDB ouverte")
	return session, nil
}

// =============================================
// ELASTICSEARCH
// =============================================
func connectElastic(url, user, password string) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Username:  user,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("client Elasticsearch: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("connexion Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("connexion Elasticsearch: %s", res.Status())
	}

	log.Info().Str("url", url).Msg("✅ Connecté à Elasticsearch")
	return client, nil
}

// =============================================
// MINIO
// =============================================
func connectMinIO(ctx context.Context, cfg *config.Config) (*minio.Client, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("client MinIO: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("vérification bucket MinIO: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("création bucket MinIO: %w", err)
		}
		log.Info().Str("bucket", cfg.MinioBucket).Msg("🪣 Bucket créé")
	} else {
		log.Info().Str("bucket", cfg.MinioBucket).Msg("🪣 Bucket MinIO déjà présent")
	}

	log.Info().Str("endpoint", cfg.MinioEndpoint).Msg("✅ Connecté à MinIO")
	return client, nil
}
