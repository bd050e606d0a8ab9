package domain

import (
	"sort"
	"strings"
)

// maxTitleNames - максимальное число имен отправителей в вычисленном заголовке.
const maxTitleNames = 4

// Title возвращает отображаемый заголовок чата. Заголовок вычисляется при
// первом вызове и кэшируется: участники и сообщения после загрузки не меняются.
func (c *Chat) Title() string {
	if c.title == "" {
		c.title = c.resolveTitle()
	}
	return c.title
}

// resolveTitle реализует эвристику выбора заголовка.
//
// Исходный заголовок используется как есть, если в чате нет участника-себя
// или заголовок отличается от его отображаемого имени. Иначе заголовок
// собирается из имен отправителей: строится гистограмма количества непустых
// сообщений по отправителям (включая отправителей, отсутствующих в списке
// участников), исключая себя, отправители сортируются по возрастанию счетчика
// и берутся первые четыре.
//
// Сортировка по возрастанию дает наименее активных отправителей. Уже
// существующие экспорты построены именно так, а заголовок участвует в именах
// файлов, поэтому порядок сохранен ради идемпотентности повторного экспорта.
func (c *Chat) resolveTitle() string {
	self := c.SelfParticipant()
	if self == nil || c.RawTitle != self.DisplayName() {
		if c.RawTitle != "" {
			return c.RawTitle
		}
		return c.ID
	}

	// Гистограмма засевается нулями для всех перечисленных участников:
	// молчащий участник тоже попадает в заголовок.
	counts := make(map[string]int, len(c.Participants))
	for _, p := range c.Participants {
		if p.IsSelf {
			continue
		}
		counts[p.ID] = 0
	}
	for i := range c.Messages {
		m := &c.Messages[i]
		if m.IsBlank() || m.SenderID == self.ID || m.SenderID == "" {
			continue
		}
		// Отправитель вне списка участников - допустимый случай, не ошибка.
		counts[m.SenderID]++
	}

	if len(counts) == 0 {
		if c.RawTitle != "" {
			return c.RawTitle
		}
		return c.ID
	}

	senders := make([]string, 0, len(counts))
	for id := range counts {
		senders = append(senders, id)
	}
	sort.Slice(senders, func(i, j int) bool {
		if counts[senders[i]] != counts[senders[j]] {
			return counts[senders[i]] < counts[senders[j]]
		}
		return senders[i] < senders[j]
	})
	if len(senders) > maxTitleNames {
		senders = senders[:maxTitleNames]
	}

	namesList := make([]string, 0, len(senders))
	for _, id := range senders {
		if p := c.Participant(id); p != nil {
			namesList = append(namesList, p.DisplayName())
		} else {
			namesList = append(namesList, id)
		}
	}

	title := strings.Join(namesList, ", ")
	if title == "" {
		if c.RawTitle != "" {
			return c.RawTitle
		}
		return c.ID
	}
	return title
}
