package decision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"perpexec/internal/application/port"
	"perpexec/internal/domain/model"
)

// FileSource 文件决策源：外部策略进程把一批意图写成 JSON 数组，
// 引擎消费后把文件重命名为 .consumed，避免同一批次重复执行。
type FileSource struct {
	path string
}

// NewFileSource 创建文件决策源
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// 文件内的单条记录，动作字段宽松解析
type intentRecord struct {
	Symbol            string  `json:"symbol"`
	Action            string  `json:"action"`
	Amount            float64 `json:"amount"`
	Price             float64 `json:"price"`
	Leverage          int     `json:"leverage"`
	ClosePercent      float64 `json:"close_percent"`
	StopLossPercent   float64 `json:"stop_loss_percent"`
	TakeProfitPercent float64 `json:"take_profit_percent"`
}

// Next 读取下一批意图；文件不存在视为空批次
func (s *FileSource) Next(ctx context.Context) ([]model.TradeIntent, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read intents: %w", err)
	}

	var records []intentRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("parse intents %s: %w", s.path, err)
	}

	intents := make([]model.TradeIntent, 0, len(records))
	for _, rec := range records {
		action, ok := model.ParseAction(rec.Action)
		if !ok {
			// 动作无法解析时保留原始文本，由编排器记为校验失败
			action = model.Action(strings.ToUpper(rec.Action))
		}
		intents = append(intents, model.TradeIntent{
			Symbol:            strings.ToUpper(strings.TrimSpace(rec.Symbol)),
			Action:            action,
			Amount:            rec.Amount,
			Price:             rec.Price,
			Leverage:          rec.Leverage,
			ClosePercent:      rec.ClosePercent,
			StopLossPercent:   rec.StopLossPercent,
			TakeProfitPercent: rec.TakeProfitPercent,
		})
	}

	if err := os.Rename(s.path, s.path+".consumed"); err != nil {
		log.Warn().Str("path", s.path).Err(err).Msg("mark intents consumed failed")
	}
	return intents, nil
}

var _ port.DecisionSource = (*FileSource)(nil)
