package services

import (
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png" // регистрация PNG-декодера
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nfnt/resize"

	"beeper-chat-exporter/internal/ports"
)

// ThumbnailOption - функциональная опция для настройки ThumbnailService.
type ThumbnailOption func(*ThumbnailService)

// WithThumbnailWorkers устанавливает размер пула воркеров.
func WithThumbnailWorkers(n int) ThumbnailOption {
	return func(s *ThumbnailService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithThumbnailQueueSize устанавливает емкость очереди заданий.
func WithThumbnailQueueSize(n int) ThumbnailOption {
	return func(s *ThumbnailService) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithThumbnailMaxDims устанавливает пороги длинной стороны для JPEG и PNG.
func WithThumbnailMaxDims(maxDimJPEG, maxDimPNG int) ThumbnailOption {
	return func(s *ThumbnailService) {
		if maxDimJPEG > 0 {
			s.maxDimJPEG = maxDimJPEG
		}
		if maxDimPNG > 0 {
			s.maxDimPNG = maxDimPNG
		}
	}
}

// WithJPEGQuality устанавливает качество кодирования миниатюр.
func WithJPEGQuality(q int) ThumbnailOption {
	return func(s *ThumbnailService) {
		if q >= 1 && q <= 100 {
			s.quality = q
		}
	}
}

// WithThumbnailLogger устанавливает логгер для сервиса.
func WithThumbnailLogger(l *slog.Logger) ThumbnailOption {
	return func(s *ThumbnailService) {
		if l != nil {
			s.log = l
		}
	}
}

// thumbnailJob - одно задание на генерацию миниатюры.
type thumbnailJob struct {
	src string // заархивированный оригинал
	dst string // путь будущей миниатюры
}

// ThumbnailService генерирует миниатюры изображений на фиксированном пуле
// воркеров поверх ограниченной FIFO-очереди. Постановка задания не ждет
// его выполнения: рендеринг страниц никогда не блокируется кодированием.
// После Drain сервис закончен и новых заданий не принимает.
type ThumbnailService struct {
	workers    int
	queueSize  int
	maxDimJPEG int
	maxDimPNG  int
	quality    int
	log        *slog.Logger

	jobs chan thumbnailJob
	wg   sync.WaitGroup

	mu       sync.Mutex
	firstErr error
}

var _ ports.ThumbnailQueue = (*ThumbnailService)(nil)

// NewThumbnailService создает сервис и сразу запускает воркеры.
func NewThumbnailService(opts ...ThumbnailOption) *ThumbnailService {
	s := &ThumbnailService{
		workers:    2,
		queueSize:  256,
		maxDimJPEG: 800,
		maxDimPNG:  1280,
		quality:    75,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.jobs = make(chan thumbnailJob, s.queueSize)
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	return s
}

// Enqueue ставит задание в очередь. Блокируется только когда очередь полна.
func (s *ThumbnailService) Enqueue(srcPath, dstPath string) {
	s.jobs <- thumbnailJob{src: srcPath, dst: dstPath}
}

// Drain закрывает очередь, дожидается воркеров и возвращает первую ошибку.
// Вызывается ровно один раз, после обработки всех чатов.
func (s *ThumbnailService) Drain() error {
	close(s.jobs)
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.firstErr
}

func (s *ThumbnailService) worker() {
	defer s.wg.Done()
	for job := range s.jobs {
		if s.failed() {
			// После первой ошибки очередь дренируется без выполнения:
			// она не должна остаться непустой и неразрешенной.
			s.log.Debug("Skipping thumbnail job after failure", "src", job.src)
			continue
		}
		if err := s.process(job); err != nil {
			s.log.Error("Thumbnail generation failed", "src", job.src, "error", err)
			s.fail(err)
		}
	}
}

func (s *ThumbnailService) failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.firstErr != nil
}

func (s *ThumbnailService) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.firstErr == nil {
		s.firstErr = err
	}
}

// process генерирует одну миниатюру. Уже существующая миниатюра не
// перегенерируется, изображение в пределах порога пропускается.
func (s *ThumbnailService) process(job thumbnailJob) error {
	if _, err := os.Stat(job.dst); err == nil {
		return nil
	}

	threshold, ok := s.threshold(job.src)
	if !ok {
		// Архиватор ставит задания только на подходящие расширения,
		// но очередь этому не доверяет.
		s.log.Warn("Thumbnail job for ineligible file, skipping", "src", job.src)
		return nil
	}

	f, err := os.Open(job.src)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	img, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to decode image %s: %w", job.src, err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= threshold && h <= threshold {
		s.log.Debug("Image within threshold, no thumbnail needed", "src", job.src, "w", w, "h", h)
		return nil
	}

	if w >= h {
		img = resize.Resize(uint(threshold), 0, img, resize.Lanczos3)
	} else {
		img = resize.Resize(0, uint(threshold), img, resize.Lanczos3)
	}

	if err := os.MkdirAll(filepath.Dir(job.dst), 0o755); err != nil {
		return fmt.Errorf("failed to create thumb dir: %w", err)
	}
	if err := s.encodeJPEG(img, job.dst); err != nil {
		_ = os.Remove(job.dst)
		return err
	}

	s.log.Debug("Thumbnail generated", "dst", job.dst)
	return nil
}

// threshold возвращает порог длинной стороны для файла или false,
// если расширение не подходит для миниатюры.
func (s *ThumbnailService) threshold(path string) (int, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return s.maxDimJPEG, true
	case ".png":
		return s.maxDimPNG, true
	default:
		return 0, false
	}
}

// encodeJPEG приводит изображение к RGBA на белом фоне и кодирует JPEG.
// Без подложки прозрачные области PNG стали бы черными.
func (s *ThumbnailService) encodeJPEG(img image.Image, dst string) error {
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Over)

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create thumbnail file: %w", err)
	}
	if err := jpeg.Encode(out, rgba, &jpeg.Options{Quality: s.quality}); err != nil {
		out.Close()
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return out.Close()
}
