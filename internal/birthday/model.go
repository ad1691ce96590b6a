package birthday

// Birthday 定义了生日在SQLite数据库中的持久化模型。
// 每个用户至多一行，后写覆盖先写。
// 出于数据最小化的考虑，年份从不被请求也从不被存储；
// 日期合法性用固定的闰年参考年校验，因此2月29日永远是合法输入。
type Birthday struct {
	UserID string `gorm:"primaryKey;type:varchar(32)"`

	// Username 是登记时的显示名快照。
	Username string

	Day   int
	Month int `gorm:"index"`
}

// monthNames 是看板月份标题使用的名称，下标0不使用。
var monthNames = [13]string{
	"", "一月", "二月", "三月", "四月", "五月", "六月",
	"七月", "八月", "九月", "十月", "十一月", "十二月",
}

// MonthName 返回月份的显示名称，month越界时返回空串。
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month]
}

// IsValidDate 校验日/月组合是否是一个真实存在的日期。
// 使用闰年2000作为参考年，使29/02被接受而30/02、31/04被拒绝。
func IsValidDate(day, month int) bool {
	if month < 1 || month > 12 {
		return false
	}
	if day < 1 || day > 31 {
		return false
	}
	return day <= daysInMonth(month)
}

// daysInMonth 返回闰年参考年中每个月的天数。
func daysInMonth(month int) int {
	switch month {
	case 2:
		return 29
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}
