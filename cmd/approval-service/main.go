// cmd/approval-service/main.go
package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"orderflow/internal/pkg/bootstrap"
	"orderflow/internal/pkg/clock"
	"orderflow/internal/pkg/mq"
	"orderflow/internal/pkg/redis"
	"orderflow/internal/service/approval/application"
	"orderflow/internal/service/approval/infrastructure"
	"orderflow/internal/service/approval/infrastructure/adapter"
	"orderflow/internal/service/approval/interfaces"
	"orderflow/internal/service/approval/port"
	"orderflow/internal/zookeeper"
)

const serviceName = "approval-service"

// main 是应用的"组装根"：创建并组装所有依赖项，然后交给 bootstrap 启动。
func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) error {
			cfg := appCtx.Config

			// 1. 订单存储 (GORM / MySQL)
			dsnCfg := mysql.NewConfig()
			dsnCfg.Net = "tcp"
			dsnCfg.Addr = fmt.Sprintf("%s:%d", cfg.Infra.MySQL.Host, cfg.Infra.MySQL.Port)
			dsnCfg.User = cfg.Infra.MySQL.User
			dsnCfg.Passwd = cfg.Infra.MySQL.Password
			dsnCfg.DBName = cfg.Infra.MySQL.Database
			dsnCfg.ParseTime = true
			dsnCfg.Loc = time.UTC

			// TranslateError 让重复主键统一映射为 gorm.ErrDuplicatedKey
			db, err := gorm.Open(gormmysql.Open(dsnCfg.FormatDSN()), &gorm.Config{TranslateError: true})
			if err != nil {
				return fmt.Errorf("connect mysql: %w", err)
			}
			orderRepo, err := infrastructure.NewGormOrderRepository(db)
			if err != nil {
				return err
			}

			// 2. 订单锁：默认 Redis 租约锁，可切换 ZooKeeper
			var locker port.OrderLocker
			switch cfg.Locker {
			case "zookeeper":
				zkConn, err := zookeeper.Connect(cfg.Infra.Zookeeper.Servers, 5*time.Second)
				if err != nil {
					return fmt.Errorf("connect zookeeper: %w", err)
				}
				locker = adapter.NewZkOrderLocker(zkConn)
			default:
				redisClient, err := redis.NewClient(cfg.Infra.Redis.Addrs)
				if err != nil {
					return fmt.Errorf("connect redis: %w", err)
				}
				locker = adapter.NewRedisOrderLocker(redisClient)
			}

			// 3. 通知网关 (Kafka)
			notificationWriter := mq.NewKafkaWriter(
				strings.Split(cfg.Infra.Kafka.Brokers, ","),
				cfg.Infra.Kafka.NotificationTopic,
			)
			notifier := adapter.NewNotificationKafkaAdapter(notificationWriter)

			// 4. 业务服务装配
			tracer := otel.Tracer(serviceName)
			metrics := application.NewWorkflowMetrics(prometheus.DefaultRegisterer)
			clk := clock.NewSystem()

			service := application.NewApprovalService(orderRepo, notifier, locker, clk, tracer, metrics)
			gate := application.NewPaymentGate(orderRepo, locker, clk, tracer, metrics)

			interfaces.NewApprovalHandler(service, gate).RegisterRoutes(appCtx.Mux)
			return nil
		},
	})
}
