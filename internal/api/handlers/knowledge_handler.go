package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"

	"kbchat/internal/dto"
	"kbchat/internal/parser"
	"kbchat/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	defaultPage  = 1
	defaultLimit = 50
)

type KnowledgeImporter interface {
	ImportFile(ctx context.Context, r io.Reader, fileName string) (*service.IngestResult, error)
}

type KnowledgeLister interface {
	List(ctx context.Context, page, limit int) (*dto.KnowledgeListResponse, error)
}

type KnowledgeHandler struct {
	importer KnowledgeImporter
	lister   KnowledgeLister
	logger   *zap.Logger
}

func NewKnowledgeHandler(importer KnowledgeImporter, lister KnowledgeLister, logger *zap.Logger) *KnowledgeHandler {
	return &KnowledgeHandler{
		importer: importer,
		lister:   lister,
		logger:   logger,
	}
}

// Upload godoc
// @Summary Upload a knowledge spreadsheet
// @Description Parses an .xlsx or .csv file with Question/Answer columns, embeds every answer and stores the entries
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Spreadsheet (.xlsx, .xlsm or .csv)"
// @Success 200 {object} dto.UploadResponse
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/admin/upload [post]
func (h *KnowledgeHandler) Upload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file uploaded",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded file", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read file",
		})
	}
	defer file.Close()

	result, err := h.importer.ImportFile(c.UserContext(), file, fileHeader.Filename)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoValidEntries):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "No valid entries found",
			})
		case errors.Is(err, parser.ErrUnsupportedFormat):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unsupported file format, upload .xlsx or .csv",
			})
		case errors.Is(err, parser.ErrUnreadableFile):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "File could not be read",
			})
		}
		h.logger.Error("Knowledge upload failed",
			zap.String("file", fileHeader.Filename),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	return c.JSON(dto.UploadResponse{
		Success:       true,
		Message:       fmt.Sprintf("Successfully added %d of %d entries", result.Added, result.Total),
		EntriesAdded:  result.Added,
		EntriesFailed: result.Failed,
		EntriesTotal:  result.Total,
	})
}

// List godoc
// @Summary List knowledge entries
// @Description Newest first, embeddings excluded
// @Tags admin
// @Produce json
// @Param page query int false "Page number, from 1" default(1)
// @Param limit query int false "Page size, up to 500" default(50)
// @Success 200 {object} dto.KnowledgeListResponse
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/admin/knowledge [get]
func (h *KnowledgeHandler) List(c *fiber.Ctx) error {
	req := dto.KnowledgeListRequest{Page: defaultPage, Limit: defaultLimit}
	if err := c.QueryParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid query parameters",
		})
	}

	if body := validationError(&req); body != nil {
		return c.Status(fiber.StatusBadRequest).JSON(body)
	}

	resp, err := h.lister.List(c.UserContext(), req.Page, req.Limit)
	if err != nil {
		h.logger.Error("Failed to list knowledge entries", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	return c.JSON(resp)
}
