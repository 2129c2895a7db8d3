package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ChrisKp1710/gamecall/internal/config"
	"github.com/ChrisKp1710/gamecall/internal/models"
	"github.com/ChrisKp1710/gamecall/internal/services"
	"github.com/ChrisKp1710/gamecall/internal/storage"
)

func usage() {
	fmt.Println("使用方法:")
	fmt.Println("  admin friends <userID>  - 列出用户的好友")
	fmt.Println("  admin pending <userID>  - 列出发给用户的待处理好友请求")
	fmt.Println("  admin unread <userID>   - 按发送者统计用户的未读消息")
}

func main() {
	if len(os.Args) < 3 {
		usage()
		os.Exit(1)
	}
	userID, err := uuid.Parse(os.Args[2])
	if err != nil {
		log.Fatalf("无效的用户ID %q: %v", os.Args[2], err)
	}

	cfg, err := config.LoadConfig(os.Getenv("GAMECALL_CONFIG"))
	if err != nil {
		log.Fatalf("无法加载配置: %v", err)
	}
	db, err := storage.InitDB(cfg.Database, zap.NewNop())
	if err != nil {
		log.Fatalf("无法连接数据库: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, os.Stdout, db, cfg, os.Args[1], userID); err != nil {
		log.Fatal(err)
	}
}

// run executes one read-only inspection command and writes a table to out.
func run(ctx context.Context, out io.Writer, db *gorm.DB, cfg config.Config, cmd string, userID uuid.UUID) error {
	userRepo := storage.NewGormUserRepository(db)
	friendshipRepo := storage.NewGormFriendshipRepository(db)
	friendships := services.NewFriendshipService(db, userRepo, friendshipRepo, nil, zap.NewNop())

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	switch cmd {
	case "friends", "pending":
		var list []*models.FriendWithUser
		var err error
		if cmd == "friends" {
			list, err = friendships.ListAccepted(ctx, userID)
		} else {
			list, err = friendships.ListIncomingPending(ctx, userID)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "ID\tUSERNAME\tFRIEND CODE\tSTATUS")
		for _, f := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.ID, f.Username, f.FriendCode, f.FriendshipStatus)
		}
	case "unread":
		router := services.NewMessageRouter(storage.NewGormMessageRepository(db), friendshipRepo, nil, nil, cfg, zap.NewNop())
		counts, err := router.GetUnreadCounts(ctx, userID)
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "SENDER\tUNREAD")
		for sender, n := range counts {
			fmt.Fprintf(tw, "%s\t%d\n", sender, n)
		}
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}
