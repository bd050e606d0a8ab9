// Package names отвечает за приведение производных имен файлов к виду,
// безопасному для всех поддерживаемых файловых систем.
package names

import (
	"regexp"
	"strings"
)

// reservedNames - зарезервированные имена устройств, которые нельзя
// использовать как имена файлов (без учета регистра).
var reservedNames = map[string]struct{}{
	"aux": {}, "con": {}, "nul": {}, "prn": {},
	"com0": {}, "com1": {}, "com2": {}, "com3": {}, "com4": {},
	"com5": {}, "com6": {}, "com7": {}, "com8": {}, "com9": {},
	"lpt0": {}, "lpt1": {}, "lpt2": {}, "lpt3": {}, "lpt4": {},
	"lpt5": {}, "lpt6": {}, "lpt7": {}, "lpt8": {}, "lpt9": {},
}

// reservedCharsRe - символы, запрещенные в именах файлов.
var reservedCharsRe = regexp.MustCompile(`["*/:<>?\\|]`)

// Sanitize приводит произвольную строку к допустимому сегменту пути.
// Запрещенные символы удаляются, пробельные символы и точки по краям
// обрезаются, к зарезервированным именам устройств добавляется "_",
// пустой результат заменяется на "_".
// Функция идемпотентна: Sanitize(Sanitize(x)) == Sanitize(x).
// Проверка зарезервированных имен выполняется после обрезки, иначе
// вход вида "con." давал бы разный результат при повторном вызове.
func Sanitize(name string) string {
	name = reservedCharsRe.ReplaceAllString(name, "")
	name = strings.Trim(name, " \t\n.")
	if _, reserved := reservedNames[strings.ToLower(name)]; reserved {
		name = name + "_"
	}
	if name == "" {
		return "_"
	}
	return name
}
