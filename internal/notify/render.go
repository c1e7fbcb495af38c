package notify

import (
	"fmt"
	"strings"
)

// Render собирает текст уведомления по ключу шаблона
func Render(n *Notice) string {
	f := n.Fields
	var b strings.Builder

	switch n.TemplateKey {
	case "booking.created":
		fmt.Fprintf(&b, "📝 Новая заявка на занятие\n\n%s записывается на «%s»\n🗓 %s (%s)",
			f["learner_name"], f["course_title"], f["window_start"], f["window_range"])
	case "booking.approved":
		fmt.Fprintf(&b, "✅ Занятие подтверждено\n\n%s подтвердил(а) «%s»\n🗓 %s (%s)",
			f["mentor_name"], f["course_title"], f["window_start"], f["window_range"])
	case "booking.reschedule_proposed":
		fmt.Fprintf(&b, "🔄 Предложен перенос\n\n%s предлагает перенести «%s»\nБыло: %s\nСтало: %s (%s)",
			f["mentor_name"], f["course_title"], f["prior_window_start"], f["window_start"], f["window_range"])
	case "booking.reschedule_accepted":
		fmt.Fprintf(&b, "✅ Перенос принят\n\n%s согласен(на) на новое время «%s»\n🗓 %s (%s)",
			f["learner_name"], f["course_title"], f["window_start"], f["window_range"])
	case "booking.reschedule_rejected":
		fmt.Fprintf(&b, "❌ Перенос отклонён\n\n%s отказался(ась) от переноса, занятие «%s» отменено",
			f["learner_name"], f["course_title"])
	case "booking.completed":
		fmt.Fprintf(&b, "✔️ Занятие завершено\n\n«%s» %s отмечено как проведённое",
			f["course_title"], f["window_start"])
	default:
		fmt.Fprintf(&b, "Бронирование #%d: %s", n.BookingID, f["status"])
	}

	if notes, ok := f["notes"]; ok {
		fmt.Fprintf(&b, "\n\n💬 %s", notes)
	}
	return b.String()
}
