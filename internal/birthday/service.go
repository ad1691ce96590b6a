package birthday

import (
	"context"
	"errors"
	"time"

	"github.com/SlpAus/guild-activity-tracker/internal/activity"
	"github.com/SlpAus/guild-activity-tracker/internal/platform/database"
)

// 面向用户的失败必须是可解释的前置条件错误，而不是裸的内部错误。
var (
	// ErrInvalidDate 表示日/月组合不是真实存在的日期。
	ErrInvalidDate = errors.New("日期无效")
	// ErrOptedOut 表示目标用户已退出追踪，未经其同意不能登记数据。
	ErrOptedOut = errors.New("该用户已关闭活动追踪")
)

// Service 实现生日的登记、删除与庆祝名单计算。
// 登记受目标用户的隐私开关约束：生日属于追踪系统的一部分。
type Service struct {
	repo *Repository
	act  *activity.Service
}

// NewService 构造生日服务。
func NewService(db *database.DB, act *activity.Service) *Service {
	return &Service{repo: NewRepository(db), act: act}
}

// Repository 暴露底层仓库，供看板协调器等使用。
func (s *Service) Repository() *Repository {
	return s.repo
}

// SetBirthday 登记或覆盖一个用户的生日。
// 日期非法返回ErrInvalidDate；目标已退出追踪返回ErrOptedOut。
func (s *Service) SetBirthday(ctx context.Context, userID, username string, day, month int) error {
	if !IsValidDate(day, month) {
		return ErrInvalidDate
	}

	stats, err := s.act.GetUserStats(ctx, userID)
	if err != nil {
		return err
	}
	if !stats.TrackingEnabled {
		return ErrOptedOut
	}

	return s.repo.Set(ctx, Birthday{UserID: userID, Username: username, Day: day, Month: month})
}

// DeleteBirthday 删除一个用户的生日，返回是否确有记录被删除。
func (s *Service) DeleteBirthday(ctx context.Context, userID string) (bool, error) {
	return s.repo.Delete(ctx, userID)
}

// GetBirthday 返回一个用户的生日，不存在时返回nil。
func (s *Service) GetBirthday(ctx context.Context, userID string) (*Birthday, error) {
	return s.repo.Get(ctx, userID)
}

// AllBirthdays 返回按月、日排序的全部生日。
func (s *Service) AllBirthdays(ctx context.Context) ([]Birthday, error) {
	return s.repo.All(ctx)
}

// BirthdaysOn 返回指定日/月的全部生日。
func (s *Service) BirthdaysOn(ctx context.Context, day, month int) ([]Birthday, error) {
	return s.repo.On(ctx, day, month)
}

// CelebrantsFor 返回now这一天应被庆祝的全部用户。
// 非闰年的2月28日会把登记在2月29日的用户一并纳入，
// 保证29/02的生日每年都被庆祝一次。
func (s *Service) CelebrantsFor(ctx context.Context, now time.Time) ([]Birthday, error) {
	day, month := now.Day(), int(now.Month())

	matches, err := s.repo.On(ctx, day, month)
	if err != nil {
		return nil, err
	}

	if day == 28 && month == 2 && !isLeapYear(now.Year()) {
		leaplings, err := s.repo.On(ctx, 29, 2)
		if err != nil {
			return nil, err
		}
		matches = append(matches, leaplings...)
	}

	return matches, nil
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
