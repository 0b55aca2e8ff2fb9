package handler

import (
	"embed"
	"fmt"
	"html/template"

	"cat-board/src/domain"
	"cat-board/src/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

// 画面に表示する文言
const (
	msgServerUnavailable = "서버에 연결할 수 없습니다. 백엔드가 실행 중인지 확인해주세요."
	msgCreateFailed      = "메모를 추가하지 못했습니다. 잠시 후 다시 시도해 주세요."
	msgDeleteFailed      = "메모를 삭제하지 못했습니다. 잠시 후 다시 시도해 주세요."
	msgInvalidNoteID     = "잘못된 메모 ID입니다."
	msgTokenSaveFailed   = "토큰을 저장하지 못했습니다."
)

// boardView board.html に渡す表示データ
type boardView struct {
	Session     middleware.Session
	Loading     bool
	Refreshing  bool
	ServerError bool
	FormError   string
	Content     string
	Notes       []domain.Note
}

// loginView login.html に渡す表示データ
type loginView struct {
	Session middleware.Session
	Error   string
}

// Templates 埋め込みテンプレートを読み込む
func Templates() *template.Template {
	return template.Must(template.New("").Funcs(template.FuncMap{
		"rotate": rotateStyle,
	}).ParseFS(templateFS, "templates/*.html"))
}

// rotateStyle ノートの傾きを style 属性に変換
func rotateStyle(deg float64) template.CSS {
	return template.CSS(fmt.Sprintf("transform: rotate(%.4fdeg)", deg))
}
