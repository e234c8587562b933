package awskms

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/kms"
	"github.com/aws/aws-sdk-go/service/kms/kmsiface"
	"github.com/stretchr/testify/mock"
)

type KMSMock struct {
	kmsiface.KMSAPI
	mock.Mock
}

func (k *KMSMock) EncryptWithContext(ctx aws.Context, input *kms.EncryptInput, _ ...request.Option) (*kms.EncryptOutput, error) {
	args := k.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kms.EncryptOutput), args.Error(1)
}

func (k *KMSMock) DecryptWithContext(ctx aws.Context, input *kms.DecryptInput, _ ...request.Option) (*kms.DecryptOutput, error) {
	args := k.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kms.DecryptOutput), args.Error(1)
}
